package usecase

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned for a rejected request wraps exactly one of
// these, so callers can classify with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
)

// BookingError is a rejected request: Kind classifies it, Message says what was wrong.
type BookingError struct {
	Kind    error
	Message string
}

func (e *BookingError) Error() string {
	return e.Message
}

func (e *BookingError) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) *BookingError {
	return &BookingError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrDoctorNotFound      = newError(ErrNotFound, "doctor not found")
	ErrPatientNotFound     = newError(ErrNotFound, "patient not found")
	ErrScheduleNotFound    = newError(ErrNotFound, "schedule not found")
	ErrAppointmentNotFound = newError(ErrNotFound, "appointment not found")
	ErrAuditLogNotFound    = newError(ErrNotFound, "audit log not found")

	ErrScheduleNotOwned     = newError(ErrInvalidState, "schedule not owned by doctor")
	ErrScheduleNotAvailable = newError(ErrInvalidState, "schedule not available")
	ErrDateMismatch         = newError(ErrInvalidState, "date does not match schedule date")
	ErrStartBeforeSchedule  = newError(ErrInvalidState, "start before schedule start")
	ErrEndAfterSchedule     = newError(ErrInvalidState, "end after schedule end")
	ErrEndNotAfterStart     = newError(ErrInvalidState, "end must be after start")
	ErrNotBookable          = newError(ErrInvalidState, "not available")
	ErrAlreadyTerminal      = newError(ErrInvalidState, "appointment is already cancelled or completed")
	ErrNotConfirmable       = newError(ErrInvalidState, "only scheduled appointments can be confirmed")
	ErrNotCompletable       = newError(ErrInvalidState, "only scheduled or confirmed appointments can be completed")

	ErrAlreadyBooked     = newError(ErrConflict, "already booked")
	ErrScheduleOverlap   = newError(ErrConflict, "overlaps another schedule of the doctor")
	ErrConcurrentOverlap = newError(ErrConflict, "overlaps an appointment created concurrently")

	ErrInvalidWorkDate   = newError(ErrValidation, "invalid work date format, use YYYY-MM-DD")
	ErrInvalidTimeFormat = newError(ErrValidation, "invalid time format, use HH:MM")
	ErrNegativeFee       = newError(ErrValidation, "fee must not be negative")
)

func overlapsAppointment(id int64) *BookingError {
	return newError(ErrConflict, "overlaps appointment #%d", id)
}

func validationFailed(message string) *BookingError {
	return newError(ErrValidation, "%s", message)
}
