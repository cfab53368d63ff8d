package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-doctor-scheduling/internal/converter"
	"go-doctor-scheduling/internal/delivery/dto"
	"go-doctor-scheduling/internal/delivery/http/middleware"
	"go-doctor-scheduling/internal/domain/entity"
	"go-doctor-scheduling/internal/domain/repository"
	"go-doctor-scheduling/internal/service"
	"go-doctor-scheduling/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type AppointmentUsecase interface {
	CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error)
	BulkCreateAppointments(ctx context.Context, req *dto.BulkCreateAppointmentsRequest) (*dto.BulkCreateAppointmentsResponse, error)
	BookAppointment(ctx context.Context, appointmentID int64, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error)
	CancelAppointment(ctx context.Context, appointmentID int64) (*dto.AppointmentResponse, error)
	ConfirmAppointment(ctx context.Context, appointmentID int64) (*dto.AppointmentResponse, error)
	CompleteAppointment(ctx context.Context, appointmentID int64) (*dto.AppointmentResponse, error)
	GetAppointment(ctx context.Context, appointmentID int64) (*dto.AppointmentResponse, error)
	ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID) (*dto.AppointmentListResponse, error)
	ListPatientAppointments(ctx context.Context, patientID uuid.UUID) (*dto.AppointmentListResponse, error)
}

// appointmentUsecase is the slot booking engine.
//
// Every mutation for a doctor runs under that doctor's lock and inside one
// transaction, so the read-validate-write sequence observes no concurrent
// writer for the same doctor. Notifications are enqueued only after commit.
type appointmentUsecase struct {
	log             *logrus.Logger
	validator       *validator.CustomValidator
	transactor      repository.Transactor
	locker          service.DoctorLocker
	notifier        service.Notifier
	auditService    service.AuditService
	appointmentRepo repository.AppointmentRepository
	scheduleRepo    repository.DoctorScheduleRepository
	doctorRepo      repository.DoctorProfileRepository
	patientRepo     repository.PatientProfileRepository
	location        *time.Location
}

func NewAppointmentUsecase(
	log *logrus.Logger,
	validator *validator.CustomValidator,
	transactor repository.Transactor,
	locker service.DoctorLocker,
	notifier service.Notifier,
	auditService service.AuditService,
	appointmentRepo repository.AppointmentRepository,
	scheduleRepo repository.DoctorScheduleRepository,
	doctorRepo repository.DoctorProfileRepository,
	patientRepo repository.PatientProfileRepository,
	location *time.Location,
) AppointmentUsecase {
	return &appointmentUsecase{
		log:             log,
		validator:       validator,
		transactor:      transactor,
		locker:          locker,
		notifier:        notifier,
		auditService:    auditService,
		appointmentRepo: appointmentRepo,
		scheduleRepo:    scheduleRepo,
		doctorRepo:      doctorRepo,
		patientRepo:     patientRepo,
		location:        location,
	}
}

func (u *appointmentUsecase) CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	if err := u.checkRequest(req); err != nil {
		return nil, err
	}

	var created *entity.Appointment
	err := u.locker.WithDoctorLock(ctx, req.DoctorID, func(ctx context.Context) error {
		return u.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
			if err := requireDoctor(tx, u.doctorRepo, u.log, req.DoctorID); err != nil {
				return err
			}
			if req.PatientID != nil {
				if err := requirePatient(tx, u.patientRepo, u.log, *req.PatientID); err != nil {
					return err
				}
			}

			schedule, err := u.scheduleRepo.FindByIDForUpdate(tx, req.ScheduleID)
			if err != nil {
				u.log.Warnf("Failed to find schedule %d: %+v", req.ScheduleID, err)
				return err
			}
			if schedule == nil {
				return ErrScheduleNotFound
			}

			appointment := newAppointment(req)
			if err := u.checkPlacement(schedule, appointment); err != nil {
				return err
			}

			existing, err := u.reservedAppointments(tx, req.DoctorID)
			if err != nil {
				return err
			}
			if clash := findOverlap(existing, appointment.Interval()); clash != nil {
				return overlapsAppointment(clash.ID)
			}

			if err := u.appointmentRepo.Create(tx, appointment); err != nil {
				return u.writeFailed("create appointment", err)
			}

			if err := u.auditService.LogCreate(tx, actorFromContext(ctx), entity.AuditActionAppointmentCreate,
				"appointment", appointment.ID, converter.AppointmentToResponse(appointment)); err != nil {
				return err
			}

			created = appointment
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if booked, ok := created.Slot().(entity.BookedSlot); ok {
		u.notifyBooked(created, booked.PatientID)
	}

	return converter.AppointmentToResponse(created), nil
}

// BulkCreateAppointments checks every item on its own and writes the accepted
// ones in a single batch. Only a missing doctor (or a storage failure) rejects
// the whole call; item failures are reported in the result.
func (u *appointmentUsecase) BulkCreateAppointments(ctx context.Context, req *dto.BulkCreateAppointmentsRequest) (*dto.BulkCreateAppointmentsResponse, error) {
	if err := u.validator.Validate(req); err != nil {
		return nil, validationFailed(u.validator.Summary(err))
	}

	var (
		created  []*entity.Appointment
		failures []dto.BulkItemFailure
	)
	err := u.locker.WithDoctorLock(ctx, req.DoctorID, func(ctx context.Context) error {
		return u.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
			if err := requireDoctor(tx, u.doctorRepo, u.log, req.DoctorID); err != nil {
				return err
			}

			existing, err := u.reservedAppointments(tx, req.DoctorID)
			if err != nil {
				return err
			}

			batch := &bulkBatch{
				doctorID:  req.DoctorID,
				existing:  existing,
				schedules: make(map[int64]*entity.DoctorSchedule),
				patients:  make(map[uuid.UUID]bool),
			}

			failures = nil
			for i := range req.Items {
				item := req.Items[i]
				reason, err := u.acceptBulkItem(tx, batch, i, &item)
				if err != nil {
					return err
				}
				if reason != "" {
					failures = append(failures, dto.BulkItemFailure{Index: i, Reason: reason})
				}
			}

			if err := u.appointmentRepo.CreateBatch(tx, batch.accepted); err != nil {
				return u.writeFailed("create appointment batch", err)
			}

			ids := make([]int64, len(batch.accepted))
			for i, appointment := range batch.accepted {
				ids[i] = appointment.ID
			}
			if err := u.auditService.LogCreate(tx, actorFromContext(ctx), entity.AuditActionAppointmentBulkCreate,
				"doctor", req.DoctorID, map[string]any{
					"requested":       len(req.Items),
					"appointment_ids": ids,
					"failed":          len(failures),
				}); err != nil {
				return err
			}

			created = batch.accepted
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	result := &dto.BulkCreateAppointmentsResponse{
		TotalRequested: len(req.Items),
		SuccessCount:   len(created),
		FailedCount:    len(failures),
		Created:        make([]dto.AppointmentResponse, 0, len(created)),
		Errors:         make([]string, 0, len(failures)),
		Failures:       make([]dto.BulkItemFailure, 0, len(failures)),
	}
	for _, appointment := range created {
		result.Created = append(result.Created, *converter.AppointmentToResponse(appointment))
		if booked, ok := appointment.Slot().(entity.BookedSlot); ok {
			u.notifyBooked(appointment, booked.PatientID)
		}
	}
	for _, failure := range failures {
		result.Errors = append(result.Errors, fmt.Sprintf("item %d: %s", failure.Index, failure.Reason))
		result.Failures = append(result.Failures, failure)
	}

	if result.FailedCount > 0 {
		u.log.Infof("Bulk create for doctor %s: %d created, %d rejected", req.DoctorID, result.SuccessCount, result.FailedCount)
	}

	return result, nil
}

func (u *appointmentUsecase) BookAppointment(ctx context.Context, appointmentID int64, req *dto.BookAppointmentRequest) (*dto.AppointmentResponse, error) {
	if err := u.validator.Validate(req); err != nil {
		return nil, validationFailed(u.validator.Summary(err))
	}

	booked, err := u.transition(ctx, appointmentID, entity.AuditActionAppointmentBook, func(tx *gorm.DB, appointment *entity.Appointment) error {
		switch appointment.Slot().(type) {
		case entity.BookedSlot:
			return ErrAlreadyBooked
		case entity.OpenSlot:
		}
		if appointment.Status != entity.AppointmentStatusAvailable {
			return ErrNotBookable
		}
		if err := requirePatient(tx, u.patientRepo, u.log, req.PatientID); err != nil {
			return err
		}

		appointment.Book(req.PatientID, req.Notes)
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.notifyBooked(booked, req.PatientID)

	return converter.AppointmentToResponse(booked), nil
}

// CancelAppointment moves the appointment to cancelled and releases its
// schedule in the same transaction.
func (u *appointmentUsecase) CancelAppointment(ctx context.Context, appointmentID int64) (*dto.AppointmentResponse, error) {
	cancelled, err := u.transition(ctx, appointmentID, entity.AuditActionAppointmentCancel, func(tx *gorm.DB, appointment *entity.Appointment) error {
		if appointment.IsTerminal() {
			return ErrAlreadyTerminal
		}
		appointment.Cancel()

		return u.releaseSchedule(ctx, tx, appointment.ScheduleID)
	})
	if err != nil {
		return nil, err
	}

	if booked, ok := cancelled.Slot().(entity.BookedSlot); ok {
		u.notify(entity.NotificationBookingCancelled, booked.PatientID, cancelled.ID)
	}

	return converter.AppointmentToResponse(cancelled), nil
}

func (u *appointmentUsecase) ConfirmAppointment(ctx context.Context, appointmentID int64) (*dto.AppointmentResponse, error) {
	confirmed, err := u.transition(ctx, appointmentID, entity.AuditActionAppointmentConfirm, func(tx *gorm.DB, appointment *entity.Appointment) error {
		if appointment.Status != entity.AppointmentStatusScheduled {
			return ErrNotConfirmable
		}
		appointment.Confirm()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return converter.AppointmentToResponse(confirmed), nil
}

func (u *appointmentUsecase) CompleteAppointment(ctx context.Context, appointmentID int64) (*dto.AppointmentResponse, error) {
	completed, err := u.transition(ctx, appointmentID, entity.AuditActionAppointmentComplete, func(tx *gorm.DB, appointment *entity.Appointment) error {
		switch appointment.Status {
		case entity.AppointmentStatusScheduled, entity.AppointmentStatusConfirmed:
		default:
			return ErrNotCompletable
		}
		appointment.Complete()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return converter.AppointmentToResponse(completed), nil
}

func (u *appointmentUsecase) GetAppointment(ctx context.Context, appointmentID int64) (*dto.AppointmentResponse, error) {
	appointment, err := u.appointmentRepo.FindByID(u.transactor.Conn(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %d: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}

	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID) (*dto.AppointmentListResponse, error) {
	db := u.transactor.Conn(ctx)
	if err := requireDoctor(db, u.doctorRepo, u.log, doctorID); err != nil {
		return nil, err
	}

	appointments, err := u.appointmentRepo.FindByDoctorID(db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

func (u *appointmentUsecase) ListPatientAppointments(ctx context.Context, patientID uuid.UUID) (*dto.AppointmentListResponse, error) {
	db := u.transactor.Conn(ctx)
	if err := requirePatient(db, u.patientRepo, u.log, patientID); err != nil {
		return nil, err
	}

	appointments, err := u.appointmentRepo.FindByPatientID(db, patientID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for patient %s: %+v", patientID, err)
		return nil, err
	}

	return &dto.AppointmentListResponse{
		Appointments: converter.AppointmentsToResponses(appointments),
		Total:        len(appointments),
	}, nil
}

// transition loads the appointment, takes its doctor's lock, re-reads the row
// under FOR UPDATE and lets apply mutate it. The doctor of an appointment never
// changes, so the unlocked first read is only used to pick the lock.
func (u *appointmentUsecase) transition(
	ctx context.Context,
	appointmentID int64,
	action string,
	apply func(tx *gorm.DB, appointment *entity.Appointment) error,
) (*entity.Appointment, error) {
	current, err := u.appointmentRepo.FindByID(u.transactor.Conn(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %d: %+v", appointmentID, err)
		return nil, err
	}
	if current == nil {
		return nil, ErrAppointmentNotFound
	}

	var updated *entity.Appointment
	err = u.locker.WithDoctorLock(ctx, current.DoctorID, func(ctx context.Context) error {
		return u.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
			appointment, err := u.appointmentRepo.FindByIDForUpdate(tx, appointmentID)
			if err != nil {
				u.log.Warnf("Failed to lock appointment %d: %+v", appointmentID, err)
				return err
			}
			if appointment == nil {
				return ErrAppointmentNotFound
			}

			oldStatus := appointment.Status
			if err := apply(tx, appointment); err != nil {
				return err
			}

			if err := u.appointmentRepo.Update(tx, appointment); err != nil {
				return u.writeFailed("update appointment", err)
			}

			if err := u.auditService.LogTransition(tx, actorFromContext(ctx), action, "appointment",
				appointment.ID, string(oldStatus), string(appointment.Status)); err != nil {
				return err
			}

			updated = appointment
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (u *appointmentUsecase) releaseSchedule(ctx context.Context, tx *gorm.DB, scheduleID int64) error {
	schedule, err := u.scheduleRepo.FindByIDForUpdate(tx, scheduleID)
	if err != nil {
		u.log.Warnf("Failed to lock schedule %d: %+v", scheduleID, err)
		return err
	}
	if schedule == nil || schedule.IsAvailable() {
		return nil
	}

	oldStatus := schedule.Status
	schedule.Release()
	if err := u.scheduleRepo.Update(tx, schedule); err != nil {
		u.log.Warnf("Failed to release schedule %d: %+v", scheduleID, err)
		return err
	}

	return u.auditService.LogTransition(tx, actorFromContext(ctx), entity.AuditActionScheduleStatus, "schedule",
		schedule.ID, string(oldStatus), string(schedule.Status))
}

// bulkBatch is the state carried across the items of one bulk create.
type bulkBatch struct {
	doctorID uuid.UUID
	existing []entity.Appointment

	accepted      []*entity.Appointment
	acceptedIndex []int

	schedules map[int64]*entity.DoctorSchedule
	patients  map[uuid.UUID]bool
}

// acceptBulkItem returns a non-empty reason when the item is rejected. An error
// means storage failed and the whole batch must roll back.
func (u *appointmentUsecase) acceptBulkItem(tx *gorm.DB, batch *bulkBatch, index int, item *dto.CreateAppointmentRequest) (string, error) {
	if item.DoctorID == uuid.Nil {
		item.DoctorID = batch.doctorID
	}
	if item.DoctorID != batch.doctorID {
		return "doctor does not match batch doctor", nil
	}
	if err := u.checkRequest(item); err != nil {
		return err.Error(), nil
	}

	if item.PatientID != nil {
		found, err := batch.patientExists(tx, u, *item.PatientID)
		if err != nil {
			return "", err
		}
		if !found {
			return ErrPatientNotFound.Message, nil
		}
	}

	schedule, err := batch.schedule(tx, u, item.ScheduleID)
	if err != nil {
		return "", err
	}
	if schedule == nil {
		return ErrScheduleNotFound.Message, nil
	}

	appointment := newAppointment(item)
	if err := u.checkPlacement(schedule, appointment); err != nil {
		var bookingErr *BookingError
		if errors.As(err, &bookingErr) {
			return bookingErr.Message, nil
		}
		return "", err
	}

	interval := appointment.Interval()
	if clash := findOverlap(batch.existing, interval); clash != nil {
		return overlapsAppointment(clash.ID).Message, nil
	}
	for i, candidate := range batch.accepted {
		if candidate.Interval().Overlaps(interval) {
			return fmt.Sprintf("overlaps item #%d", batch.acceptedIndex[i]), nil
		}
	}

	batch.accepted = append(batch.accepted, appointment)
	batch.acceptedIndex = append(batch.acceptedIndex, index)
	return "", nil
}

func (b *bulkBatch) schedule(tx *gorm.DB, u *appointmentUsecase, scheduleID int64) (*entity.DoctorSchedule, error) {
	if schedule, ok := b.schedules[scheduleID]; ok {
		return schedule, nil
	}
	schedule, err := u.scheduleRepo.FindByIDForUpdate(tx, scheduleID)
	if err != nil {
		u.log.Warnf("Failed to find schedule %d: %+v", scheduleID, err)
		return nil, err
	}
	b.schedules[scheduleID] = schedule
	return schedule, nil
}

func (b *bulkBatch) patientExists(tx *gorm.DB, u *appointmentUsecase, patientID uuid.UUID) (bool, error) {
	if found, ok := b.patients[patientID]; ok {
		return found, nil
	}
	err := requirePatient(tx, u.patientRepo, u.log, patientID)
	if err != nil && !errors.Is(err, ErrPatientNotFound) {
		return false, err
	}
	b.patients[patientID] = err == nil
	return err == nil, nil
}

func (u *appointmentUsecase) checkRequest(req *dto.CreateAppointmentRequest) error {
	if err := u.validator.Validate(req); err != nil {
		return validationFailed(u.validator.Summary(err))
	}
	if req.Fee != nil && req.Fee.IsNegative() {
		return ErrNegativeFee
	}
	return nil
}

// checkPlacement verifies the appointment may live inside schedule: same
// doctor, open schedule, and an interval contained in the schedule window.
func (u *appointmentUsecase) checkPlacement(schedule *entity.DoctorSchedule, appointment *entity.Appointment) error {
	if schedule.DoctorID != appointment.DoctorID {
		return ErrScheduleNotOwned
	}
	if !schedule.IsAvailable() {
		return ErrScheduleNotAvailable
	}

	interval := appointment.Interval()
	if !interval.Valid() {
		return ErrEndNotAfterStart
	}
	if !entity.SameDate(interval.Start, schedule.WorkDate, u.location) {
		return ErrDateMismatch
	}

	window, err := schedule.Window(u.location)
	if err != nil {
		u.log.Warnf("Failed to resolve window of schedule %d: %+v", schedule.ID, err)
		return err
	}
	if interval.Start.Before(window.Start) {
		return ErrStartBeforeSchedule
	}
	if interval.End.After(window.End) {
		return ErrEndAfterSchedule
	}

	return nil
}

// reservedAppointments returns every persisted appointment of the doctor.
// Cancelled and completed rows keep their interval reserved.
func (u *appointmentUsecase) reservedAppointments(tx *gorm.DB, doctorID uuid.UUID) ([]entity.Appointment, error) {
	appointments, err := u.appointmentRepo.FindByDoctorID(tx, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find appointments for doctor %s: %+v", doctorID, err)
		return nil, err
	}
	return appointments, nil
}

func (u *appointmentUsecase) writeFailed(op string, err error) error {
	if errors.Is(err, repository.ErrOverlapConstraint) {
		u.log.Warnf("Overlap constraint rejected %s: %+v", op, err)
		return ErrConcurrentOverlap
	}
	u.log.Warnf("Failed to %s: %+v", op, err)
	return err
}

func (u *appointmentUsecase) notifyBooked(appointment *entity.Appointment, patientID uuid.UUID) {
	u.notify(entity.NotificationBookingCreated, patientID, appointment.ID)
	u.notify(entity.NotificationNewAppointmentForDoctor, appointment.DoctorID, appointment.ID)
}

// notify never fails the caller; delivery problems are only logged.
func (u *appointmentUsecase) notify(eventType entity.NotificationType, recipient uuid.UUID, appointmentID int64) {
	event := entity.NewNotificationEvent(eventType, recipient, appointmentID, time.Now())
	if err := u.notifier.Notify(event); err != nil {
		u.log.Warnf("Failed to enqueue %s notification for appointment %d: %+v", eventType, appointmentID, err)
	}
}

func newAppointment(req *dto.CreateAppointmentRequest) *entity.Appointment {
	appointment := &entity.Appointment{
		DoctorID:   req.DoctorID,
		ScheduleID: req.ScheduleID,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Status:     entity.AppointmentStatusAvailable,
		Fee:        decimal.Zero,
	}
	if req.Fee != nil {
		appointment.Fee = *req.Fee
	}
	if req.Notes != nil {
		appointment.Notes = *req.Notes
	}
	if req.PatientID != nil {
		appointment.Book(*req.PatientID, req.Notes)
	}
	return appointment
}

func findOverlap(appointments []entity.Appointment, interval entity.Interval) *entity.Appointment {
	for i := range appointments {
		if appointments[i].Interval().Overlaps(interval) {
			return &appointments[i]
		}
	}
	return nil
}

func requireDoctor(db *gorm.DB, repo repository.DoctorProfileRepository, log *logrus.Logger, doctorID uuid.UUID) error {
	doctor, err := repo.FindByUserID(db, doctorID)
	if err != nil {
		log.Warnf("Failed to find doctor %s: %+v", doctorID, err)
		return err
	}
	if doctor == nil {
		return ErrDoctorNotFound
	}
	return nil
}

func requirePatient(db *gorm.DB, repo repository.PatientProfileRepository, log *logrus.Logger, patientID uuid.UUID) error {
	patient, err := repo.FindByUserID(db, patientID)
	if err != nil {
		log.Warnf("Failed to find patient %s: %+v", patientID, err)
		return err
	}
	if patient == nil {
		return ErrPatientNotFound
	}
	return nil
}

func actorFromContext(ctx context.Context) *uuid.UUID {
	if userID, ok := middleware.GetUserIDFromContext(ctx); ok {
		return &userID
	}
	return nil
}
