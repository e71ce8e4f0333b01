package handlers

import (
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/clinicsched/libs/httpx"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/scheduling"
)

type Handler struct {
	svc    *scheduling.Service
	logger *slog.Logger
	tenant httpx.Middleware
}

func New(svc *scheduling.Service, logger *slog.Logger, jwtSecret string) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
		tenant: WithTenant(jwtSecret),
	}
}

// Register mounts the /v1 API on mux. Each route is wrapped individually so
// the mux pattern stays visible to outer middleware.
func (h *Handler) Register(mux *http.ServeMux) {
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, h.tenant(fn))
	}

	route("POST /v1/appointments", h.CreateAppointment)
	route("GET /v1/appointments", h.ListAppointments)
	route("GET /v1/appointments/{id}", h.GetAppointment)
	route("PUT /v1/appointments/{id}/reschedule", h.RescheduleAppointment)
	route("PATCH /v1/appointments/{id}/cancel", h.CancelAppointment)
	route("PATCH /v1/appointments/{id}/status", h.UpdateAppointmentStatus)

	route("POST /v1/availability-windows", h.CreateWindow)
	route("GET /v1/availability-windows", h.ListWindows)
	route("GET /v1/availability-windows/{id}", h.GetWindow)
	route("DELETE /v1/availability-windows/{id}", h.DeleteWindow)

	route("POST /v1/providers", h.CreateProvider)
	route("GET /v1/providers", h.ListProviders)
	route("GET /v1/providers/{id}", h.GetProvider)
	route("PATCH /v1/providers/{id}/active", h.SetProviderActive)
	route("GET /v1/providers/{id}/slots", h.ListFreeSlots)

	route("POST /v1/patients", h.CreatePatient)
	route("GET /v1/patients", h.ListPatients)
	route("GET /v1/patients/{id}", h.GetPatient)

	route("POST /v1/insurance-plans", h.CreateInsurancePlan)
	route("GET /v1/insurance-plans", h.ListInsurancePlans)
	route("GET /v1/insurance-plans/{id}", h.GetInsurancePlan)
	route("PATCH /v1/insurance-plans/{id}/active", h.SetInsurancePlanActive)
}
