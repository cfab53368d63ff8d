package dto

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateScheduleRequest struct {
	DoctorID  uuid.UUID `json:"doctor_id" validate:"required"`
	WorkDate  string    `json:"work_date" validate:"required"`  // Format: YYYY-MM-DD
	StartTime string    `json:"start_time" validate:"required"` // Format: HH:MM
	EndTime   string    `json:"end_time" validate:"required"`   // Format: HH:MM
	Notes     *string   `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type UpdateScheduleStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=available booked cancelled"`
}

// Response DTOs

type ScheduleResponse struct {
	ID        int64               `json:"id"`
	DoctorID  uuid.UUID           `json:"doctor_id"`
	WorkDate  string              `json:"work_date"`
	StartTime string              `json:"start_time"`
	EndTime   string              `json:"end_time"`
	Status    string              `json:"status"`
	Notes     string              `json:"notes"`
	Slots     *ScheduleSlotCounts `json:"slots,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// ScheduleSlotCounts only counts appointments that still reserve their time.
type ScheduleSlotCounts struct {
	Total  int `json:"total"`
	Open   int `json:"open"`
	Booked int `json:"booked"`
}

type ScheduleListResponse struct {
	Schedules []ScheduleResponse `json:"schedules"`
	Total     int                `json:"total"`
}
