package http

import (
	"net/http"

	"go-doctor-scheduling/internal/delivery/http/handler"
	"go-doctor-scheduling/internal/delivery/http/middleware"
	"go-doctor-scheduling/internal/domain/entity"

	"github.com/gorilla/mux"
)

type Router struct {
	router                *mux.Router
	appointmentHandler    *handler.AppointmentHandler
	doctorScheduleHandler *handler.DoctorScheduleHandler
	auditLogHandler       *handler.AuditLogHandler
	authMiddleware        *middleware.AuthMiddleware
	corsMiddleware        *middleware.CORSMiddleware
}

func NewRouter(
	appointmentHandler *handler.AppointmentHandler,
	doctorScheduleHandler *handler.DoctorScheduleHandler,
	auditLogHandler *handler.AuditLogHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:                mux.NewRouter(),
		appointmentHandler:    appointmentHandler,
		doctorScheduleHandler: doctorScheduleHandler,
		auditLogHandler:       auditLogHandler,
		authMiddleware:        authMiddleware,
		corsMiddleware:        corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Any authenticated user
	authed := api.NewRoute().Subrouter()
	authed.Use(r.authMiddleware.Authenticate)

	authed.HandleFunc("/schedules/{id:[0-9]+}", r.doctorScheduleHandler.GetSchedule).Methods(http.MethodGet)
	authed.HandleFunc("/doctors/{doctorId}/schedules", r.doctorScheduleHandler.ListDoctorSchedules).Methods(http.MethodGet)
	authed.HandleFunc("/appointments/{id:[0-9]+}", r.appointmentHandler.GetAppointment).Methods(http.MethodGet)
	authed.HandleFunc("/doctors/{doctorId}/appointments", r.appointmentHandler.ListDoctorAppointments).Methods(http.MethodGet)
	authed.HandleFunc("/patients/{patientId}/appointments", r.appointmentHandler.ListPatientAppointments).Methods(http.MethodGet)
	authed.HandleFunc("/appointments/{id:[0-9]+}/cancel", r.appointmentHandler.CancelAppointment).Methods(http.MethodPost)

	// Booking (patient or admin)
	booking := api.NewRoute().Subrouter()
	booking.Use(r.authMiddleware.Authenticate)
	booking.Use(middleware.RequireRole(entity.RoleIDAdmin, entity.RoleIDPatient))
	booking.HandleFunc("/appointments/{id:[0-9]+}/book", r.appointmentHandler.BookAppointment).Methods(http.MethodPost)

	// Slot and schedule management (doctor or admin)
	staff := api.NewRoute().Subrouter()
	staff.Use(r.authMiddleware.Authenticate)
	staff.Use(middleware.RequireAdminOrDoctor)
	staff.HandleFunc("/schedules", r.doctorScheduleHandler.CreateSchedule).Methods(http.MethodPost)
	staff.HandleFunc("/schedules/{id:[0-9]+}/status", r.doctorScheduleHandler.UpdateScheduleStatus).Methods(http.MethodPatch)
	staff.HandleFunc("/appointments", r.appointmentHandler.CreateAppointment).Methods(http.MethodPost)
	staff.HandleFunc("/appointments/bulk", r.appointmentHandler.BulkCreateAppointments).Methods(http.MethodPost)
	staff.HandleFunc("/appointments/{id:[0-9]+}/confirm", r.appointmentHandler.ConfirmAppointment).Methods(http.MethodPost)
	staff.HandleFunc("/appointments/{id:[0-9]+}/complete", r.appointmentHandler.CompleteAppointment).Methods(http.MethodPost)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetRecentAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id:[0-9]+}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
