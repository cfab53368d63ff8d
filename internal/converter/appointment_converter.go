package converter

import (
	"go-doctor-scheduling/internal/delivery/dto"
	"go-doctor-scheduling/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	response := &dto.AppointmentResponse{
		ID:         appointment.ID,
		DoctorID:   appointment.DoctorID,
		ScheduleID: appointment.ScheduleID,
		StartTime:  appointment.StartTime,
		EndTime:    appointment.EndTime,
		Status:     string(appointment.Status),
		Notes:      appointment.Notes,
		Fee:        appointment.Fee,
		CreatedAt:  appointment.CreatedAt,
		UpdatedAt:  appointment.UpdatedAt,
	}

	if booked, ok := appointment.Slot().(entity.BookedSlot); ok {
		patientID := booked.PatientID
		response.PatientID = &patientID
	}

	return response
}

// AppointmentsToResponses converts a slice of Appointment entities to slice of AppointmentResponse DTOs
func AppointmentsToResponses(appointments []entity.Appointment) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i])
	}
	return responses
}
