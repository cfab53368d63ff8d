package repository

import (
	"go-doctor-scheduling/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DoctorProfileRepository is the DoctorLookup provided by the surrounding system.
type DoctorProfileRepository interface {
	FindByUserID(db *gorm.DB, userID uuid.UUID) (*entity.DoctorProfile, error)
}
