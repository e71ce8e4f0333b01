package handlers

import (
	"net/http"
	"time"

	"github.com/md-rashed-zaman/clinicsched/libs/httpx"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/scheduling"
)

type windowRequest struct {
	ProviderID string `json:"provider_id"`
	Weekday    *int   `json:"weekday"` // Monday=0 through Sunday=6
	Start      string `json:"start"`
	End        string `json:"end"`
}

type windowResponse struct {
	ID          string       `json:"id"`
	ClinicID    string       `json:"clinic_id"`
	ProviderID  string       `json:"provider_id"`
	Weekday     int          `json:"weekday"`
	WeekdayName string       `json:"weekday_name"`
	Start       model.Minute `json:"start"`
	End         model.Minute `json:"end"`
	CreatedAt   string       `json:"created_at"`
}

func toWindowResponse(w model.AvailabilityWindow) windowResponse {
	return windowResponse{
		ID:          w.ID,
		ClinicID:    w.TenantID,
		ProviderID:  w.ProviderID,
		Weekday:     int(w.Weekday),
		WeekdayName: w.Weekday.String(),
		Start:       w.Start,
		End:         w.End,
		CreatedAt:   w.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) CreateWindow(w http.ResponseWriter, r *http.Request) {
	var req windowRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if req.Weekday == nil || req.Start == "" || req.End == "" {
		httpx.WriteError(w, http.StatusBadRequest, "weekday, start and end are required", nil)
		return
	}
	start, err := model.ParseMinute(req.Start)
	if err != nil {
		badRequest(w, err)
		return
	}
	end, err := model.ParseMinute(req.End)
	if err != nil {
		badRequest(w, err)
		return
	}

	win, err := h.svc.CreateWindow(r.Context(), TenantFromContext(r.Context()), scheduling.WindowRequest{
		ProviderID: req.ProviderID,
		Weekday:    model.Weekday(*req.Weekday),
		Start:      start,
		End:        end,
	})
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toWindowResponse(win))
}

func (h *Handler) ListWindows(w http.ResponseWriter, r *http.Request) {
	wins, err := h.svc.ListWindows(r.Context(), TenantFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	items := make([]windowResponse, 0, len(wins))
	for _, win := range wins {
		items = append(items, toWindowResponse(win))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) GetWindow(w http.ResponseWriter, r *http.Request) {
	win, err := h.svc.FindWindow(r.Context(), r.PathValue("id"), TenantFromContext(r.Context()))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toWindowResponse(win))
}

func (h *Handler) DeleteWindow(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteWindow(r.Context(), r.PathValue("id"), TenantFromContext(r.Context())); err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
