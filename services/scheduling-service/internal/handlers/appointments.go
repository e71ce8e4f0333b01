package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicsched/libs/httpx"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/scheduling"
)

type createAppointmentRequest struct {
	PatientID       string `json:"patient_id"`
	ProviderID      string `json:"provider_id"`
	Date            string `json:"date"`
	Start           string `json:"start"`
	PaymentKind     string `json:"payment_kind"`
	InsurancePlanID string `json:"insurance_plan_id"`
	Notes           string `json:"notes"`
}

type rescheduleRequest struct {
	NewDate  string `json:"new_date"`
	NewStart string `json:"new_start"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type appointmentResponse struct {
	ID              string       `json:"id"`
	ClinicID        string       `json:"clinic_id"`
	ProviderID      string       `json:"provider_id"`
	PatientID       string       `json:"patient_id"`
	Date            string       `json:"date"`
	Start           model.Minute `json:"start"`
	End             model.Minute `json:"end"`
	Status          model.Status `json:"status"`
	PaymentKind     string       `json:"payment_kind"`
	InsurancePlanID string       `json:"insurance_plan_id,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	CreatedAt       string       `json:"created_at"`
	UpdatedAt       string       `json:"updated_at"`
}

func toAppointmentResponse(a model.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:              a.ID,
		ClinicID:        a.TenantID,
		ProviderID:      a.ProviderID,
		PatientID:       a.PatientID,
		Date:            a.Date.Format(model.DateLayout),
		Start:           a.Start,
		End:             a.End,
		Status:          a.Status,
		PaymentKind:     string(a.PaymentKind),
		InsurancePlanID: a.InsurancePlanID,
		Notes:           a.Notes,
		CreatedAt:       a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func parseDateTime(date, start string) (time.Time, model.Minute, error) {
	if strings.TrimSpace(date) == "" || strings.TrimSpace(start) == "" {
		return time.Time{}, 0, errors.New("date and start are required")
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return time.Time{}, 0, err
	}
	m, err := model.ParseMinute(start)
	if err != nil {
		return time.Time{}, 0, err
	}
	return d, m, nil
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	date, start, err := parseDateTime(req.Date, req.Start)
	if err != nil {
		badRequest(w, err)
		return
	}
	kind := model.PaymentKind(strings.ToLower(strings.TrimSpace(req.PaymentKind)))
	if kind == "" {
		kind = model.PaymentPrivate
	}

	appt, err := h.svc.Create(r.Context(), TenantFromContext(r.Context()), scheduling.CreateRequest{
		PatientID:       req.PatientID,
		ProviderID:      req.ProviderID,
		Date:            date,
		Start:           start,
		PaymentKind:     kind,
		InsurancePlanID: req.InsurancePlanID,
		Notes:           req.Notes,
	})
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	w.Header().Set("Location", "/v1/appointments/"+appt.ID)
	httpx.WriteJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.svc.FindAllByTenant(r.Context(), TenantFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	items := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		items = append(items, toAppointmentResponse(a))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.FindByID(r.Context(), r.PathValue("id"), TenantFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	date, start, err := parseDateTime(req.NewDate, req.NewStart)
	if err != nil {
		badRequest(w, err)
		return
	}
	appt, err := h.svc.Reschedule(r.Context(), r.PathValue("id"), TenantFromContext(r.Context()), scheduling.RescheduleRequest{
		NewDate:  date,
		NewStart: start,
	})
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

// CancelAppointment defaults to a clinic-side cancellation; ?by_clinic=false
// records it as canceled by the patient.
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	byClinic := true
	if raw := strings.TrimSpace(r.URL.Query().Get("by_clinic")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "by_clinic must be true or false", nil)
			return
		}
		byClinic = v
	}
	appt, err := h.svc.Cancel(r.Context(), r.PathValue("id"), TenantFromContext(r.Context()), byClinic)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	status := model.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	if status == "" {
		httpx.WriteError(w, http.StatusBadRequest, "status is required", nil)
		return
	}
	appt, err := h.svc.UpdateStatus(r.Context(), r.PathValue("id"), TenantFromContext(r.Context()), status)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt))
}
