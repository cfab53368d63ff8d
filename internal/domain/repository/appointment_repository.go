package repository

import (
	"errors"

	"go-doctor-scheduling/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrOverlapConstraint is returned by writes rejected by the storage-level
// no-overlap constraint on a doctor's appointments.
var ErrOverlapConstraint = errors.New("appointment overlaps an existing appointment of the doctor")

// AppointmentRepository is the AppointmentStore. Lookups return (nil, nil) when no row matches.
type AppointmentRepository interface {
	Create(db *gorm.DB, appointment *entity.Appointment) error
	// CreateBatch persists all appointments in one write, assigning their IDs.
	CreateBatch(db *gorm.DB, appointments []*entity.Appointment) error
	FindByID(db *gorm.DB, id int64) (*entity.Appointment, error)
	FindByIDForUpdate(db *gorm.DB, id int64) (*entity.Appointment, error)
	FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.Appointment, error)
	FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error)
	FindByScheduleIDs(db *gorm.DB, scheduleIDs []int64) ([]entity.Appointment, error)
	Update(db *gorm.DB, appointment *entity.Appointment) error
}
