package entity

import "github.com/google/uuid"

// SlotState is implemented only by OpenSlot and BookedSlot, so a type switch
// over it covers every case.
type SlotState interface {
	slotState()
}

// OpenSlot is an appointment with no patient attached.
type OpenSlot struct{}

// BookedSlot is an appointment bound to a patient.
type BookedSlot struct {
	PatientID uuid.UUID
}

func (OpenSlot) slotState()   {}
func (BookedSlot) slotState() {}
