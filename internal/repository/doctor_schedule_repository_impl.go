package repository

import (
	"errors"
	"time"

	"go-doctor-scheduling/internal/domain/entity"
	domainRepo "go-doctor-scheduling/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type doctorScheduleRepository struct{}

func NewDoctorScheduleRepository() domainRepo.DoctorScheduleRepository {
	return &doctorScheduleRepository{}
}

func (r *doctorScheduleRepository) Create(db *gorm.DB, schedule *entity.DoctorSchedule) error {
	return db.Create(schedule).Error
}

func (r *doctorScheduleRepository) FindByID(db *gorm.DB, id int64) (*entity.DoctorSchedule, error) {
	return r.first(db.Where("id = ?", id))
}

func (r *doctorScheduleRepository) FindByIDForUpdate(db *gorm.DB, id int64) (*entity.DoctorSchedule, error) {
	return r.first(db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *doctorScheduleRepository) FindByDoctorAndDate(db *gorm.DB, doctorID uuid.UUID, workDate time.Time) ([]entity.DoctorSchedule, error) {
	var schedules []entity.DoctorSchedule
	err := db.Where("doctor_id = ? AND work_date = ?", doctorID, workDate.Format(entity.DateLayout)).
		Order("start_time ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *doctorScheduleRepository) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.DoctorSchedule, error) {
	var schedules []entity.DoctorSchedule
	err := db.Where("doctor_id = ?", doctorID).Order("work_date ASC, start_time ASC").Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *doctorScheduleRepository) Update(db *gorm.DB, schedule *entity.DoctorSchedule) error {
	return db.Save(schedule).Error
}

func (r *doctorScheduleRepository) first(query *gorm.DB) (*entity.DoctorSchedule, error) {
	var schedule entity.DoctorSchedule
	err := query.First(&schedule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &schedule, nil
}
