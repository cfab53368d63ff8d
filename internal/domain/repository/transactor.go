package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor hands out database handles to the usecases.
//
// WithinTransaction runs fn inside one storage transaction. The transaction
// commits when fn returns nil and rolls back otherwise; every repository call
// made with tx takes part in it. Conn returns a plain handle for reads outside
// a transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	Conn(ctx context.Context) *gorm.DB
}
