package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationType names an outbound event emitted by the booking engine
type NotificationType string

const (
	NotificationBookingCreated          NotificationType = "booking.created"
	NotificationBookingCancelled        NotificationType = "booking.cancelled"
	NotificationNewAppointmentForDoctor NotificationType = "appointment.new_for_doctor"
)

var notificationNamespace = uuid.MustParse("6f1c7e2a-3b8d-4c55-9a0e-2d4f6b8c1e37")

// NotificationEvent is the content-only payload handed to the dispatcher.
// ID is derived from type, appointment and recipient so redelivery of the same
// event always carries the same idempotency key.
type NotificationEvent struct {
	ID              uuid.UUID        `json:"id"`
	Type            NotificationType `json:"type"`
	RecipientUserID uuid.UUID        `json:"recipient_user_id"`
	AppointmentID   int64            `json:"appointment_id"`
	OccurredAt      time.Time        `json:"occurred_at"`
}

func NewNotificationEvent(eventType NotificationType, recipient uuid.UUID, appointmentID int64, at time.Time) NotificationEvent {
	key := fmt.Sprintf("%s:%d:%s", eventType, appointmentID, recipient)
	return NotificationEvent{
		ID:              uuid.NewSHA1(notificationNamespace, []byte(key)),
		Type:            eventType,
		RecipientUserID: recipient,
		AppointmentID:   appointmentID,
		OccurredAt:      at,
	}
}
