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

type providerRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Active          *bool  `json:"active"`
}

type providerResponse struct {
	ID              string `json:"id"`
	ClinicID        string `json:"clinic_id"`
	Name            string `json:"name"`
	Active          bool   `json:"active"`
	DurationMinutes int    `json:"duration_minutes"`
	CreatedAt       string `json:"created_at"`
}

type patientRequest struct {
	Name string `json:"name"`
}

type patientResponse struct {
	ID        string `json:"id"`
	ClinicID  string `json:"clinic_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type insurancePlanRequest struct {
	Name   string `json:"name"`
	Active *bool  `json:"active"`
}

type insurancePlanResponse struct {
	ID        string `json:"id"`
	ClinicID  string `json:"clinic_id"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

type activeRequest struct {
	Active *bool `json:"active"`
}

type slotResponse struct {
	Start model.Minute `json:"start"`
	End   model.Minute `json:"end"`
}

func toProviderResponse(p model.Provider) providerResponse {
	return providerResponse{
		ID:              p.ID,
		ClinicID:        p.TenantID,
		Name:            p.Name,
		Active:          p.Active,
		DurationMinutes: p.DurationMinutes,
		CreatedAt:       p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toPatientResponse(p model.Patient) patientResponse {
	return patientResponse{
		ID:        p.ID,
		ClinicID:  p.TenantID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toInsurancePlanResponse(p model.InsurancePlan) insurancePlanResponse {
	return insurancePlanResponse{
		ID:        p.ID,
		ClinicID:  p.TenantID,
		Name:      p.Name,
		Active:    p.Active,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func decodeActive(r *http.Request) (bool, error) {
	var req activeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return false, err
	}
	if req.Active == nil {
		return false, errActiveRequired
	}
	return *req.Active, nil
}

var errActiveRequired = errors.New("active is required")

func (h *Handler) CreateProvider(w http.ResponseWriter, r *http.Request) {
	var req providerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	p, err := h.svc.CreateProvider(r.Context(), TenantFromContext(r.Context()), scheduling.ProviderRequest{
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		Active:          req.Active,
	})
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toProviderResponse(p))
}

func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.ListProviders(r.Context(), TenantFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	items := make([]providerResponse, 0, len(ps))
	for _, p := range ps {
		items = append(items, toProviderResponse(p))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) GetProvider(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProvider(r.Context(), r.PathValue("id"), TenantFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProviderResponse(p))
}

func (h *Handler) SetProviderActive(w http.ResponseWriter, r *http.Request) {
	active, err := decodeActive(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	p, err := h.svc.SetProviderActive(r.Context(), r.PathValue("id"), TenantFromContext(r.Context()), active)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProviderResponse(p))
}

// ListFreeSlots answers GET /v1/providers/{id}/slots?date=YYYY-MM-DD[&step=N].
func (h *Handler) ListFreeSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawDate := strings.TrimSpace(q.Get("date"))
	if rawDate == "" {
		httpx.WriteError(w, http.StatusBadRequest, "date is required", nil)
		return
	}
	date, err := model.ParseDate(rawDate)
	if err != nil {
		badRequest(w, err)
		return
	}
	var step model.Minute
	if raw := strings.TrimSpace(q.Get("step")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, "step must be a positive number of minutes", nil)
			return
		}
		step = model.Minute(n)
	}

	slots, err := h.svc.FreeSlots(r.Context(), TenantFromContext(r.Context()), r.PathValue("id"), date, step)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	items := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotResponse{Start: s.Start, End: s.End})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"provider_id": r.PathValue("id"),
		"date":        date.Format(model.DateLayout),
		"items":       items,
	})
}

func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req patientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	p, err := h.svc.CreatePatient(r.Context(), TenantFromContext(r.Context()), scheduling.PatientRequest{Name: req.Name})
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toPatientResponse(p))
}

func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.ListPatients(r.Context(), TenantFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	items := make([]patientResponse, 0, len(ps))
	for _, p := range ps {
		items = append(items, toPatientResponse(p))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPatient(r.Context(), r.PathValue("id"), TenantFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toPatientResponse(p))
}

func (h *Handler) CreateInsurancePlan(w http.ResponseWriter, r *http.Request) {
	var req insurancePlanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	p, err := h.svc.CreateInsurancePlan(r.Context(), TenantFromContext(r.Context()), scheduling.InsurancePlanRequest{
		Name:   req.Name,
		Active: req.Active,
	})
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toInsurancePlanResponse(p))
}

func (h *Handler) ListInsurancePlans(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.ListInsurancePlans(r.Context(), TenantFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	items := make([]insurancePlanResponse, 0, len(ps))
	for _, p := range ps {
		items = append(items, toInsurancePlanResponse(p))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) GetInsurancePlan(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetInsurancePlan(r.Context(), r.PathValue("id"), TenantFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toInsurancePlanResponse(p))
}

func (h *Handler) SetInsurancePlanActive(w http.ResponseWriter, r *http.Request) {
	active, err := decodeActive(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	p, err := h.svc.SetInsurancePlanActive(r.Context(), r.PathValue("id"), TenantFromContext(r.Context()), active)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toInsurancePlanResponse(p))
}
