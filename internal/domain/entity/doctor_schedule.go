package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScheduleStatus represents whether a schedule window accepts new appointments
type ScheduleStatus string

const (
	ScheduleStatusAvailable ScheduleStatus = "available"
	ScheduleStatusBooked    ScheduleStatus = "booked"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

const (
	DateLayout      = "2006-01-02"
	TimeOfDayLayout = "15:04"
)

// DoctorSchedule is one contiguous single-day availability window declared by a doctor.
// StartTime and EndTime are wall-clock times (HH:MM) on WorkDate.
type DoctorSchedule struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	DoctorID  uuid.UUID      `gorm:"type:uuid;not null;index:idx_doctor_schedules_doctor_date" json:"doctor_id"`
	WorkDate  time.Time      `gorm:"type:date;not null;index:idx_doctor_schedules_doctor_date" json:"work_date"`
	StartTime string         `gorm:"type:time;not null" json:"start_time"`
	EndTime   string         `gorm:"type:time;not null" json:"end_time"`
	Status    ScheduleStatus `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`
	Notes     string         `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DoctorSchedule) TableName() string {
	return "doctor_schedules"
}

// IsAvailable checks if new appointments may be created inside the window
func (s *DoctorSchedule) IsAvailable() bool {
	return s.Status == ScheduleStatusAvailable
}

// Release returns the schedule to available so its window can be reused
func (s *DoctorSchedule) Release() {
	s.Status = ScheduleStatusAvailable
}

// Window resolves the schedule's wall-clock bounds to absolute instants in loc.
func (s *DoctorSchedule) Window(loc *time.Location) (Interval, error) {
	start, err := ClockOn(s.WorkDate, s.StartTime, loc)
	if err != nil {
		return Interval{}, fmt.Errorf("schedule %d start time: %w", s.ID, err)
	}
	end, err := ClockOn(s.WorkDate, s.EndTime, loc)
	if err != nil {
		return Interval{}, fmt.Errorf("schedule %d end time: %w", s.ID, err)
	}
	return Interval{Start: start, End: end}, nil
}

// ClockOn places a HH:MM (or HH:MM:SS, as returned by postgres) clock value on the calendar day of date.
func ClockOn(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	t, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, loc), nil
}

// ParseClock accepts HH:MM and HH:MM:SS
func ParseClock(clock string) (time.Time, error) {
	if t, err := time.Parse(TimeOfDayLayout, clock); err == nil {
		return t, nil
	}
	return time.Parse("15:04:05", clock)
}

// SameDate reports whether a and b fall on the same calendar day in loc.
func SameDate(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
