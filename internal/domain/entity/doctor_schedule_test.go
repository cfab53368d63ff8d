package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorSchedule_Window(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	schedule := &DoctorSchedule{
		ID:        1,
		WorkDate:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		StartTime: "08:00",
		EndTime:   "12:30:00",
	}

	window, err := schedule.Window(jakarta)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 8, 0, 0, 0, jakarta), window.Start)
	assert.Equal(t, time.Date(2024, 1, 15, 12, 30, 0, 0, jakarta), window.End)
	assert.Equal(t, time.Date(2024, 1, 15, 1, 0, 0, 0, time.UTC), window.Start.UTC())

	schedule.EndTime = "noon"
	_, err = schedule.Window(jakarta)
	assert.ErrorContains(t, err, "schedule 1 end time")
}

func TestSameDate(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)
	workDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	// 20:00 UTC on the 14th is already the 15th in Jakarta
	assert.True(t, SameDate(time.Date(2024, 1, 14, 20, 0, 0, 0, time.UTC), workDate, jakarta))
	assert.False(t, SameDate(time.Date(2024, 1, 14, 20, 0, 0, 0, time.UTC), workDate, time.UTC))
	assert.True(t, SameDate(time.Date(2024, 1, 15, 23, 59, 0, 0, time.UTC), workDate, time.UTC))
}

func TestParseClock(t *testing.T) {
	for _, valid := range []string{"08:00", "23:59", "08:00:00"} {
		_, err := ParseClock(valid)
		assert.NoError(t, err, valid)
	}
	for _, invalid := range []string{"", "8am", "24:00", "08-00"} {
		_, err := ParseClock(invalid)
		assert.Error(t, err, invalid)
	}
}

func TestDoctorSchedule_Release(t *testing.T) {
	schedule := &DoctorSchedule{Status: ScheduleStatusBooked}
	assert.False(t, schedule.IsAvailable())
	schedule.Release()
	assert.True(t, schedule.IsAvailable())
}

func TestAppointment_SlotAndLifecycle(t *testing.T) {
	appointment := &Appointment{Status: AppointmentStatusAvailable}
	assert.Equal(t, OpenSlot{}, appointment.Slot())
	assert.True(t, appointment.IsActive())

	patientID := uuid.New()
	notes := "first visit"
	appointment.Book(patientID, &notes)
	assert.Equal(t, BookedSlot{PatientID: patientID}, appointment.Slot())
	assert.Equal(t, AppointmentStatusScheduled, appointment.Status)
	assert.Equal(t, "first visit", appointment.Notes)

	appointment.Confirm()
	assert.False(t, appointment.IsTerminal())

	appointment.Complete()
	assert.True(t, appointment.IsTerminal())
	assert.True(t, appointment.IsActive())

	cancelled := &Appointment{Status: AppointmentStatusScheduled}
	cancelled.Cancel()
	assert.True(t, cancelled.IsTerminal())
	assert.False(t, cancelled.IsActive())
}

func TestNewNotificationEvent_DeterministicID(t *testing.T) {
	recipient := uuid.New()
	now := time.Now()

	first := NewNotificationEvent(NotificationBookingCreated, recipient, 7, now)
	again := NewNotificationEvent(NotificationBookingCreated, recipient, 7, now.Add(time.Minute))
	other := NewNotificationEvent(NotificationBookingCancelled, recipient, 7, now)

	assert.Equal(t, first.ID, again.ID)
	assert.NotEqual(t, first.ID, other.ID)
}
