package converter

import (
	"go-doctor-scheduling/internal/delivery/dto"
	"go-doctor-scheduling/internal/domain/entity"
)

// ScheduleToResponse converts a DoctorSchedule entity to ScheduleResponse DTO
func ScheduleToResponse(schedule *entity.DoctorSchedule) *dto.ScheduleResponse {
	if schedule == nil {
		return nil
	}

	return &dto.ScheduleResponse{
		ID:        schedule.ID,
		DoctorID:  schedule.DoctorID,
		WorkDate:  schedule.WorkDate.Format(entity.DateLayout),
		StartTime: trimSeconds(schedule.StartTime),
		EndTime:   trimSeconds(schedule.EndTime),
		Status:    string(schedule.Status),
		Notes:     schedule.Notes,
		CreatedAt: schedule.CreatedAt,
		UpdatedAt: schedule.UpdatedAt,
	}
}

// SchedulesToResponses converts a slice of DoctorSchedule entities to slice of ScheduleResponse DTOs
func SchedulesToResponses(schedules []entity.DoctorSchedule) []dto.ScheduleResponse {
	responses := make([]dto.ScheduleResponse, len(schedules))
	for i := range schedules {
		responses[i] = *ScheduleToResponse(&schedules[i])
	}
	return responses
}

// SlotCounts summarises the appointments of one schedule. Cancelled ones are skipped.
func SlotCounts(appointments []entity.Appointment) *dto.ScheduleSlotCounts {
	counts := &dto.ScheduleSlotCounts{}
	for i := range appointments {
		if !appointments[i].IsActive() {
			continue
		}
		counts.Total++
		switch appointments[i].Slot().(type) {
		case entity.OpenSlot:
			counts.Open++
		case entity.BookedSlot:
			counts.Booked++
		}
	}
	return counts
}

// postgres returns time columns as HH:MM:SS
func trimSeconds(clock string) string {
	t, err := entity.ParseClock(clock)
	if err != nil {
		return clock
	}
	return t.Format(entity.TimeOfDayLayout)
}
