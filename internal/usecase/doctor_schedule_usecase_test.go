package usecase

import (
	"context"
	"testing"

	"go-doctor-scheduling/internal/delivery/dto"
	"go-doctor-scheduling/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSchedule(t *testing.T) {
	ctx := context.Background()

	t.Run("creates available window", func(t *testing.T) {
		f := newFixture(t)
		doctorID := f.store.addDoctor()

		schedule, err := f.schedules.CreateSchedule(ctx, &dto.CreateScheduleRequest{
			DoctorID:  doctorID,
			WorkDate:  workDay,
			StartTime: "08:00",
			EndTime:   "12:00",
		})
		require.NoError(t, err)

		assert.Equal(t, workDay, schedule.WorkDate)
		assert.Equal(t, "08:00", schedule.StartTime)
		assert.Equal(t, string(entity.ScheduleStatusAvailable), schedule.Status)
		assert.Equal(t, &dto.ScheduleSlotCounts{}, schedule.Slots)
		assert.Equal(t, []string{entity.AuditActionScheduleCreate}, f.store.auditActions())
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		f := newFixture(t)
		doctorID := f.store.addDoctor()

		_, err := f.schedules.CreateSchedule(ctx, &dto.CreateScheduleRequest{DoctorID: doctorID})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = f.schedules.CreateSchedule(ctx, &dto.CreateScheduleRequest{
			DoctorID: doctorID, WorkDate: "15-01-2024", StartTime: "08:00", EndTime: "12:00",
		})
		assert.ErrorIs(t, err, ErrInvalidWorkDate)

		_, err = f.schedules.CreateSchedule(ctx, &dto.CreateScheduleRequest{
			DoctorID: doctorID, WorkDate: workDay, StartTime: "8am", EndTime: "12:00",
		})
		assert.ErrorIs(t, err, ErrInvalidTimeFormat)

		_, err = f.schedules.CreateSchedule(ctx, &dto.CreateScheduleRequest{
			DoctorID: doctorID, WorkDate: workDay, StartTime: "12:00", EndTime: "08:00",
		})
		assert.ErrorIs(t, err, ErrEndNotAfterStart)
	})

	t.Run("unknown doctor", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.schedules.CreateSchedule(ctx, &dto.CreateScheduleRequest{
			DoctorID: uuid.New(), WorkDate: workDay, StartTime: "08:00", EndTime: "12:00",
		})
		assert.ErrorIs(t, err, ErrDoctorNotFound)
	})

	t.Run("rejects overlap with another active window on the same day", func(t *testing.T) {
		f := newFixture(t)
		doctorID := f.store.addDoctor()
		f.store.addSchedule(doctorID, workDay, "08:00", "12:00")
		cancelled := f.store.addSchedule(doctorID, workDay, "13:00", "17:00")
		f.store.setScheduleStatus(cancelled.ID, entity.ScheduleStatusCancelled)

		_, err := f.schedules.CreateSchedule(ctx, &dto.CreateScheduleRequest{
			DoctorID: doctorID, WorkDate: workDay, StartTime: "11:00", EndTime: "13:00",
		})
		assert.ErrorIs(t, err, ErrScheduleOverlap)

		_, err = f.schedules.CreateSchedule(ctx, &dto.CreateScheduleRequest{
			DoctorID: doctorID, WorkDate: workDay, StartTime: "12:00", EndTime: "17:00",
		})
		assert.NoError(t, err)

		_, err = f.schedules.CreateSchedule(ctx, &dto.CreateScheduleRequest{
			DoctorID: doctorID, WorkDate: "2024-01-16", StartTime: "08:00", EndTime: "12:00",
		})
		assert.NoError(t, err)
	})
}

func TestScheduleQueriesIncludeSlotCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doctorID := f.store.addDoctor()
	patientID := f.store.addPatient()
	monday := f.store.addSchedule(doctorID, workDay, "08:00", "12:00")
	tuesday := f.store.addSchedule(doctorID, "2024-01-16", "08:00", "12:00")

	open, err := f.usecase.CreateAppointment(ctx, createRequest(doctorID, monday.ID, "08:00", "08:30"))
	require.NoError(t, err)
	toBook, err := f.usecase.CreateAppointment(ctx, createRequest(doctorID, monday.ID, "08:30", "09:00"))
	require.NoError(t, err)
	toCancel, err := f.usecase.CreateAppointment(ctx, createRequest(doctorID, monday.ID, "09:00", "09:30"))
	require.NoError(t, err)

	_, err = f.usecase.BookAppointment(ctx, toBook.ID, &dto.BookAppointmentRequest{PatientID: patientID})
	require.NoError(t, err)
	_, err = f.usecase.CancelAppointment(ctx, toCancel.ID)
	require.NoError(t, err)

	schedule, err := f.schedules.GetSchedule(ctx, monday.ID)
	require.NoError(t, err)
	assert.Equal(t, &dto.ScheduleSlotCounts{Total: 2, Open: 1, Booked: 1}, schedule.Slots)

	_, err = f.schedules.GetSchedule(ctx, 9999)
	assert.ErrorIs(t, err, ErrScheduleNotFound)

	all, err := f.schedules.ListDoctorSchedules(ctx, doctorID, "")
	require.NoError(t, err)
	require.Equal(t, 2, all.Total)
	assert.Equal(t, monday.ID, all.Schedules[0].ID)
	assert.Equal(t, tuesday.ID, all.Schedules[1].ID)
	assert.Equal(t, &dto.ScheduleSlotCounts{}, all.Schedules[1].Slots)

	onTuesday, err := f.schedules.ListDoctorSchedules(ctx, doctorID, "2024-01-16")
	require.NoError(t, err)
	require.Equal(t, 1, onTuesday.Total)
	assert.Equal(t, tuesday.ID, onTuesday.Schedules[0].ID)

	_, err = f.schedules.ListDoctorSchedules(ctx, doctorID, "tomorrow")
	assert.ErrorIs(t, err, ErrInvalidWorkDate)
	_, err = f.schedules.ListDoctorSchedules(ctx, uuid.New(), "")
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	assert.NotZero(t, open.ID)
}

func TestUpdateScheduleStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doctorID := f.store.addDoctor()
	schedule := f.store.addSchedule(doctorID, workDay, "08:00", "17:00")

	updated, err := f.schedules.UpdateScheduleStatus(ctx, schedule.ID, &dto.UpdateScheduleStatusRequest{Status: "booked"})
	require.NoError(t, err)
	assert.Equal(t, string(entity.ScheduleStatusBooked), updated.Status)

	t.Run("closed window rejects new appointments", func(t *testing.T) {
		_, err := f.usecase.CreateAppointment(ctx, createRequest(doctorID, schedule.ID, "09:00", "09:30"))
		assert.ErrorIs(t, err, ErrScheduleNotAvailable)
	})

	t.Run("reopened window accepts them again", func(t *testing.T) {
		_, err := f.schedules.UpdateScheduleStatus(ctx, schedule.ID, &dto.UpdateScheduleStatusRequest{Status: "available"})
		require.NoError(t, err)

		_, err = f.usecase.CreateAppointment(ctx, createRequest(doctorID, schedule.ID, "09:00", "09:30"))
		assert.NoError(t, err)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, err := f.schedules.UpdateScheduleStatus(ctx, schedule.ID, &dto.UpdateScheduleStatusRequest{Status: "paused"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown schedule", func(t *testing.T) {
		_, err := f.schedules.UpdateScheduleStatus(ctx, 9999, &dto.UpdateScheduleStatusRequest{Status: "booked"})
		assert.ErrorIs(t, err, ErrScheduleNotFound)
	})

	assert.Equal(t, []string{
		entity.AuditActionScheduleStatus,
		entity.AuditActionScheduleStatus,
		entity.AuditActionAppointmentCreate,
	}, f.store.auditActions())
}

func TestAuditLogQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doctorID := f.store.addDoctor()
	schedule := f.store.addSchedule(doctorID, workDay, "08:00", "17:00")
	_, err := f.usecase.CreateAppointment(ctx, createRequest(doctorID, schedule.ID, "09:00", "09:30"))
	require.NoError(t, err)
	_, err = f.schedules.UpdateScheduleStatus(ctx, schedule.ID, &dto.UpdateScheduleStatusRequest{Status: "booked"})
	require.NoError(t, err)

	recent, err := f.audits.GetRecentAuditLogs(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, recent.Total)
	assert.Equal(t, entity.AuditActionScheduleStatus, recent.Logs[0].Action)
	assert.Equal(t, "available", recent.Logs[0].Metadata["old_status"])

	log, err := f.audits.GetAuditLog(ctx, recent.Logs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, entity.AuditActionAppointmentCreate, log.Action)

	_, err = f.audits.GetAuditLog(ctx, 9999)
	assert.ErrorIs(t, err, ErrAuditLogNotFound)
}
