package repository

import (
	"errors"

	"go-doctor-scheduling/internal/domain/entity"
	domainRepo "go-doctor-scheduling/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// SQLSTATE raised by the appointments_no_overlap exclusion constraint
	pgExclusionViolation = "23P01"

	appointmentBatchSize = 200
)

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

func (r *appointmentRepository) Create(db *gorm.DB, appointment *entity.Appointment) error {
	return translateWriteError(db.Create(appointment).Error)
}

func (r *appointmentRepository) CreateBatch(db *gorm.DB, appointments []*entity.Appointment) error {
	if len(appointments) == 0 {
		return nil
	}
	return translateWriteError(db.CreateInBatches(appointments, appointmentBatchSize).Error)
}

func (r *appointmentRepository) FindByID(db *gorm.DB, id int64) (*entity.Appointment, error) {
	return r.first(db.Where("id = ?", id))
}

func (r *appointmentRepository) FindByIDForUpdate(db *gorm.DB, id int64) (*entity.Appointment, error) {
	return r.first(db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *appointmentRepository) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Where("doctor_id = ?", doctorID).Order("start_time ASC").Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindByPatientID(db *gorm.DB, patientID uuid.UUID) ([]entity.Appointment, error) {
	var appointments []entity.Appointment
	err := db.Where("patient_id = ?", patientID).Order("start_time DESC").Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) FindByScheduleIDs(db *gorm.DB, scheduleIDs []int64) ([]entity.Appointment, error) {
	if len(scheduleIDs) == 0 {
		return nil, nil
	}
	var appointments []entity.Appointment
	err := db.Where("schedule_id IN ?", scheduleIDs).Order("start_time ASC").Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *appointmentRepository) Update(db *gorm.DB, appointment *entity.Appointment) error {
	return translateWriteError(db.Save(appointment).Error)
}

func (r *appointmentRepository) first(query *gorm.DB) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := query.First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func translateWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
		return domainRepo.ErrOverlapConstraint
	}
	return err
}
