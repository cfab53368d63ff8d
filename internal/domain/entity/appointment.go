package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AppointmentStatus represents the lifecycle state of an appointment slot
type AppointmentStatus string

const (
	AppointmentStatusAvailable AppointmentStatus = "available"
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// Appointment is a concrete interval nested inside a DoctorSchedule.
// A nil PatientID means the slot is open; use Slot() instead of inspecting it directly.
type Appointment struct {
	ID         int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	DoctorID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"doctor_id"`
	PatientID  *uuid.UUID        `gorm:"type:uuid;index" json:"patient_id,omitempty"`
	ScheduleID int64             `gorm:"not null;index" json:"schedule_id"`
	StartTime  time.Time         `gorm:"type:timestamptz;not null" json:"start_time"`
	EndTime    time.Time         `gorm:"type:timestamptz;not null" json:"end_time"`
	Status     AppointmentStatus `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`
	Fee        decimal.Decimal   `gorm:"type:decimal(10,2);not null;default:0" json:"fee"`
	Notes      string            `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// Interval returns the appointment's half-open time range
func (a *Appointment) Interval() Interval {
	return Interval{Start: a.StartTime, End: a.EndTime}
}

// Slot returns the tagged booking state of the appointment.
func (a *Appointment) Slot() SlotState {
	if a.PatientID == nil {
		return OpenSlot{}
	}
	return BookedSlot{PatientID: *a.PatientID}
}

// IsActive reports whether the appointment has not been cancelled.
func (a *Appointment) IsActive() bool {
	return a.Status != AppointmentStatusCancelled
}

// IsTerminal reports whether no further transition is allowed
func (a *Appointment) IsTerminal() bool {
	return a.Status == AppointmentStatusCancelled || a.Status == AppointmentStatusCompleted
}

// Book attaches a patient to an open slot and moves it to scheduled
func (a *Appointment) Book(patientID uuid.UUID, notes *string) {
	a.PatientID = &patientID
	a.Status = AppointmentStatusScheduled
	if notes != nil {
		a.Notes = *notes
	}
}

// Confirm changes appointment status to confirmed
func (a *Appointment) Confirm() {
	a.Status = AppointmentStatusConfirmed
}

// Complete changes appointment status to completed
func (a *Appointment) Complete() {
	a.Status = AppointmentStatusCompleted
}

// Cancel changes appointment status to cancelled
func (a *Appointment) Cancel() {
	a.Status = AppointmentStatusCancelled
}
