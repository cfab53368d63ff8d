package handler

import (
	"errors"
	"net/http"
	"strconv"

	"go-doctor-scheduling/internal/service"
	"go-doctor-scheduling/internal/usecase"
	"go-doctor-scheduling/pkg/response"

	"github.com/gorilla/mux"
)

// writeUsecaseError maps the usecase error kinds to HTTP statuses. Anything
// that is not a rejected request is reported as fallback with a 500.
func writeUsecaseError(w http.ResponseWriter, err error, fallback string) {
	var bookingErr *usecase.BookingError
	if !errors.As(err, &bookingErr) {
		if errors.Is(err, service.ErrLockTimeout) {
			response.ServiceUnavailable(w, "Doctor is busy, please retry")
			return
		}
		response.InternalServerError(w, fallback)
		return
	}

	switch {
	case errors.Is(err, usecase.ErrNotFound):
		response.NotFound(w, bookingErr.Message)
	case errors.Is(err, usecase.ErrConflict), errors.Is(err, usecase.ErrInvalidState):
		response.Conflict(w, bookingErr.Message)
	case errors.Is(err, usecase.ErrValidation):
		response.BadRequest(w, bookingErr.Message)
	default:
		response.InternalServerError(w, fallback)
	}
}

func int64Var(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}
