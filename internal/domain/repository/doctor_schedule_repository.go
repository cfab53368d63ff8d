package repository

import (
	"time"

	"go-doctor-scheduling/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DoctorScheduleRepository is the ScheduleStore. Lookups return (nil, nil) when no row matches.
type DoctorScheduleRepository interface {
	Create(db *gorm.DB, schedule *entity.DoctorSchedule) error
	FindByID(db *gorm.DB, id int64) (*entity.DoctorSchedule, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(db *gorm.DB, id int64) (*entity.DoctorSchedule, error)
	FindByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, workDate time.Time) ([]entity.DoctorSchedule, error)
	FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.DoctorSchedule, error)
	Update(db *gorm.DB, schedule *entity.DoctorSchedule) error
}
