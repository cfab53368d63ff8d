package usecase

import (
	"context"
	"time"

	"go-doctor-scheduling/internal/converter"
	"go-doctor-scheduling/internal/delivery/dto"
	"go-doctor-scheduling/internal/domain/entity"
	"go-doctor-scheduling/internal/domain/repository"
	"go-doctor-scheduling/internal/service"
	"go-doctor-scheduling/pkg/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type DoctorScheduleUsecase interface {
	CreateSchedule(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error)
	GetSchedule(ctx context.Context, scheduleID int64) (*dto.ScheduleResponse, error)
	// ListDoctorSchedules returns every schedule of the doctor, or only those on workDate when it is not empty.
	ListDoctorSchedules(ctx context.Context, doctorID uuid.UUID, workDate string) (*dto.ScheduleListResponse, error)
	UpdateScheduleStatus(ctx context.Context, scheduleID int64, req *dto.UpdateScheduleStatusRequest) (*dto.ScheduleResponse, error)
}

type doctorScheduleUsecase struct {
	log             *logrus.Logger
	validator       *validator.CustomValidator
	transactor      repository.Transactor
	locker          service.DoctorLocker
	auditService    service.AuditService
	scheduleRepo    repository.DoctorScheduleRepository
	appointmentRepo repository.AppointmentRepository
	doctorRepo      repository.DoctorProfileRepository
	location        *time.Location
}

func NewDoctorScheduleUsecase(
	log *logrus.Logger,
	validator *validator.CustomValidator,
	transactor repository.Transactor,
	locker service.DoctorLocker,
	auditService service.AuditService,
	scheduleRepo repository.DoctorScheduleRepository,
	appointmentRepo repository.AppointmentRepository,
	doctorRepo repository.DoctorProfileRepository,
	location *time.Location,
) DoctorScheduleUsecase {
	return &doctorScheduleUsecase{
		log:             log,
		validator:       validator,
		transactor:      transactor,
		locker:          locker,
		auditService:    auditService,
		scheduleRepo:    scheduleRepo,
		appointmentRepo: appointmentRepo,
		doctorRepo:      doctorRepo,
		location:        location,
	}
}

func (u *doctorScheduleUsecase) CreateSchedule(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	if err := u.validator.Validate(req); err != nil {
		return nil, validationFailed(u.validator.Summary(err))
	}

	workDate, err := time.Parse(entity.DateLayout, req.WorkDate)
	if err != nil {
		return nil, ErrInvalidWorkDate
	}
	if _, err := time.Parse(entity.TimeOfDayLayout, req.StartTime); err != nil {
		return nil, ErrInvalidTimeFormat
	}
	if _, err := time.Parse(entity.TimeOfDayLayout, req.EndTime); err != nil {
		return nil, ErrInvalidTimeFormat
	}

	schedule := &entity.DoctorSchedule{
		DoctorID:  req.DoctorID,
		WorkDate:  workDate,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    entity.ScheduleStatusAvailable,
	}
	if req.Notes != nil {
		schedule.Notes = *req.Notes
	}

	window, err := schedule.Window(u.location)
	if err != nil {
		return nil, ErrInvalidTimeFormat
	}
	if !window.Valid() {
		return nil, ErrEndNotAfterStart
	}

	err = u.locker.WithDoctorLock(ctx, req.DoctorID, func(ctx context.Context) error {
		return u.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
			if err := requireDoctor(tx, u.doctorRepo, u.log, req.DoctorID); err != nil {
				return err
			}

			sameDay, err := u.scheduleRepo.FindByDoctorAndDate(tx, req.DoctorID, workDate)
			if err != nil {
				u.log.Warnf("Failed to find schedules of doctor %s on %s: %+v", req.DoctorID, req.WorkDate, err)
				return err
			}
			for i := range sameDay {
				if sameDay[i].Status == entity.ScheduleStatusCancelled {
					continue
				}
				other, err := sameDay[i].Window(u.location)
				if err != nil {
					return err
				}
				if other.Overlaps(window) {
					return ErrScheduleOverlap
				}
			}

			if err := u.scheduleRepo.Create(tx, schedule); err != nil {
				u.log.Warnf("Failed to create schedule: %+v", err)
				return err
			}

			return u.auditService.LogCreate(tx, actorFromContext(ctx), entity.AuditActionScheduleCreate,
				"schedule", schedule.ID, converter.ScheduleToResponse(schedule))
		})
	})
	if err != nil {
		return nil, err
	}

	response := converter.ScheduleToResponse(schedule)
	response.Slots = &dto.ScheduleSlotCounts{}
	return response, nil
}

func (u *doctorScheduleUsecase) GetSchedule(ctx context.Context, scheduleID int64) (*dto.ScheduleResponse, error) {
	db := u.transactor.Conn(ctx)

	schedule, err := u.scheduleRepo.FindByID(db, scheduleID)
	if err != nil {
		u.log.Warnf("Failed to find schedule %d: %+v", scheduleID, err)
		return nil, err
	}
	if schedule == nil {
		return nil, ErrScheduleNotFound
	}

	responses, err := u.withSlotCounts(db, []entity.DoctorSchedule{*schedule})
	if err != nil {
		return nil, err
	}

	return &responses[0], nil
}

func (u *doctorScheduleUsecase) ListDoctorSchedules(ctx context.Context, doctorID uuid.UUID, workDate string) (*dto.ScheduleListResponse, error) {
	db := u.transactor.Conn(ctx)

	if err := requireDoctor(db, u.doctorRepo, u.log, doctorID); err != nil {
		return nil, err
	}

	var (
		schedules []entity.DoctorSchedule
		err       error
	)
	if workDate != "" {
		date, parseErr := time.Parse(entity.DateLayout, workDate)
		if parseErr != nil {
			return nil, ErrInvalidWorkDate
		}
		schedules, err = u.scheduleRepo.FindByDoctorAndDate(db, doctorID, date)
	} else {
		schedules, err = u.scheduleRepo.FindByDoctorID(db, doctorID)
	}
	if err != nil {
		u.log.Warnf("Failed to find schedules of doctor %s: %+v", doctorID, err)
		return nil, err
	}

	responses, err := u.withSlotCounts(db, schedules)
	if err != nil {
		return nil, err
	}

	return &dto.ScheduleListResponse{
		Schedules: responses,
		Total:     len(responses),
	}, nil
}

// UpdateScheduleStatus lets the doctor close (booked, cancelled) or reopen a window.
// Existing appointments are left untouched; a closed window only stops new ones.
func (u *doctorScheduleUsecase) UpdateScheduleStatus(ctx context.Context, scheduleID int64, req *dto.UpdateScheduleStatusRequest) (*dto.ScheduleResponse, error) {
	if err := u.validator.Validate(req); err != nil {
		return nil, validationFailed(u.validator.Summary(err))
	}

	current, err := u.scheduleRepo.FindByID(u.transactor.Conn(ctx), scheduleID)
	if err != nil {
		u.log.Warnf("Failed to find schedule %d: %+v", scheduleID, err)
		return nil, err
	}
	if current == nil {
		return nil, ErrScheduleNotFound
	}

	var updated *entity.DoctorSchedule
	err = u.locker.WithDoctorLock(ctx, current.DoctorID, func(ctx context.Context) error {
		return u.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
			schedule, err := u.scheduleRepo.FindByIDForUpdate(tx, scheduleID)
			if err != nil {
				u.log.Warnf("Failed to lock schedule %d: %+v", scheduleID, err)
				return err
			}
			if schedule == nil {
				return ErrScheduleNotFound
			}

			oldStatus := schedule.Status
			schedule.Status = entity.ScheduleStatus(req.Status)
			if oldStatus != schedule.Status {
				if err := u.scheduleRepo.Update(tx, schedule); err != nil {
					u.log.Warnf("Failed to update schedule %d: %+v", scheduleID, err)
					return err
				}
				if err := u.auditService.LogTransition(tx, actorFromContext(ctx), entity.AuditActionScheduleStatus,
					"schedule", schedule.ID, string(oldStatus), string(schedule.Status)); err != nil {
					return err
				}
			}

			updated = schedule
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return converter.ScheduleToResponse(updated), nil
}

// withSlotCounts attaches derived appointment counts using one lookup for all schedules.
func (u *doctorScheduleUsecase) withSlotCounts(db *gorm.DB, schedules []entity.DoctorSchedule) ([]dto.ScheduleResponse, error) {
	ids := make([]int64, len(schedules))
	for i := range schedules {
		ids[i] = schedules[i].ID
	}

	appointments, err := u.appointmentRepo.FindByScheduleIDs(db, ids)
	if err != nil {
		u.log.Warnf("Failed to find appointments of schedules: %+v", err)
		return nil, err
	}

	bySchedule := make(map[int64][]entity.Appointment, len(schedules))
	for _, appointment := range appointments {
		bySchedule[appointment.ScheduleID] = append(bySchedule[appointment.ScheduleID], appointment)
	}

	responses := converter.SchedulesToResponses(schedules)
	for i := range responses {
		responses[i].Slots = converter.SlotCounts(bySchedule[responses[i].ID])
	}
	return responses, nil
}
