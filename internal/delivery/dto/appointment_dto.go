package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Request DTOs

type CreateAppointmentRequest struct {
	DoctorID   uuid.UUID        `json:"doctor_id" validate:"required"`
	ScheduleID int64            `json:"schedule_id" validate:"required,min=1"`
	PatientID  *uuid.UUID       `json:"patient_id,omitempty"`
	StartTime  time.Time        `json:"start_time" validate:"required"` // RFC3339
	EndTime    time.Time        `json:"end_time" validate:"required"`   // RFC3339
	Notes      *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Fee        *decimal.Decimal `json:"fee,omitempty"`
}

type BookAppointmentRequest struct {
	PatientID uuid.UUID `json:"patient_id" validate:"required"`
	Notes     *string   `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// BulkCreateAppointmentsRequest items may omit doctor_id; they inherit the batch doctor.
// Items are validated one by one so a malformed item fails alone.
type BulkCreateAppointmentsRequest struct {
	DoctorID uuid.UUID                  `json:"doctor_id" validate:"required"`
	Items    []CreateAppointmentRequest `json:"items" validate:"required,min=1,max=500"`
}

// Response DTOs

type AppointmentResponse struct {
	ID         int64           `json:"id"`
	DoctorID   uuid.UUID       `json:"doctor_id"`
	PatientID  *uuid.UUID      `json:"patient_id,omitempty"`
	ScheduleID int64           `json:"schedule_id"`
	StartTime  time.Time       `json:"start_time"`
	EndTime    time.Time       `json:"end_time"`
	Status     string          `json:"status"`
	Notes      string          `json:"notes"`
	Fee        decimal.Decimal `json:"fee"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}

type BulkItemFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// BulkCreateAppointmentsResponse lists failures in input order; Errors[i] describes Failures[i].
type BulkCreateAppointmentsResponse struct {
	TotalRequested int                   `json:"total_requested"`
	SuccessCount   int                   `json:"success_count"`
	FailedCount    int                   `json:"failed_count"`
	Created        []AppointmentResponse `json:"created"`
	Errors         []string              `json:"errors"`
	Failures       []BulkItemFailure     `json:"failures"`
}
