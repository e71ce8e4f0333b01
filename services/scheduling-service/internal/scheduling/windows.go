package scheduling

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/apperr"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
)

type WindowRequest struct {
	ProviderID string
	Weekday    model.Weekday
	Start      model.Minute
	End        model.Minute
}

// CreateWindow adds a weekly availability window. Existing appointments are
// not re-validated against the new grid.
func (s *Service) CreateWindow(ctx context.Context, tenantID string, req WindowRequest) (w model.AvailabilityWindow, err error) {
	ctx, done := s.begin(ctx, "create_window", attribute.String("clinic.id", tenantID))
	defer done(&err)

	if err := requireTenant(tenantID); err != nil {
		return model.AvailabilityWindow{}, err
	}
	req.ProviderID = strings.TrimSpace(req.ProviderID)
	if req.ProviderID == "" {
		return model.AvailabilityWindow{}, apperr.Invalid("provider_id is required")
	}
	if err := availability.ValidateWindow(req.Weekday, req.Start, req.End); err != nil {
		return model.AvailabilityWindow{}, err
	}
	provider, err := s.provider(ctx, tenantID, req.ProviderID)
	if err != nil {
		return model.AvailabilityWindow{}, err
	}

	w = model.AvailabilityWindow{
		ID:         s.newID(),
		TenantID:   tenantID,
		ProviderID: provider.ID,
		Weekday:    req.Weekday,
		Start:      req.Start,
		End:        req.End,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.InsertWindow(ctx, w); err != nil {
		return model.AvailabilityWindow{}, fmt.Errorf("insert window: %w", err)
	}
	s.logger.Info("availability window created",
		"window_id", w.ID,
		"clinic_id", tenantID,
		"provider_id", w.ProviderID,
		"weekday", w.Weekday.String(),
		"range", w.Start.String()+"-"+w.End.String(),
	)
	return w, nil
}

func (s *Service) ListWindows(ctx context.Context, tenantID string) ([]model.AvailabilityWindow, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	windows, err := s.store.ListWindowsByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	return windows, nil
}

func (s *Service) FindWindow(ctx context.Context, id, tenantID string) (model.AvailabilityWindow, error) {
	if err := requireTenant(tenantID); err != nil {
		return model.AvailabilityWindow{}, err
	}
	w, err := s.store.FindWindow(ctx, id)
	if apperr.IsNotFound(err) || (err == nil && w.TenantID != tenantID) {
		return model.AvailabilityWindow{}, apperr.NotFound("availability window not found").With("window_id", id)
	}
	if err != nil {
		return model.AvailabilityWindow{}, fmt.Errorf("find window: %w", err)
	}
	return w, nil
}

func (s *Service) DeleteWindow(ctx context.Context, id, tenantID string) (err error) {
	ctx, done := s.begin(ctx, "delete_window", attribute.String("clinic.id", tenantID))
	defer done(&err)

	if _, err := s.FindWindow(ctx, id, tenantID); err != nil {
		return err
	}
	if err := s.store.DeleteWindow(ctx, id); err != nil {
		return fmt.Errorf("delete window: %w", err)
	}
	s.logger.Info("availability window deleted", "window_id", id, "clinic_id", tenantID)
	return nil
}
