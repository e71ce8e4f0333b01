package scheduling

import (
	"context"
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/apperr"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
)

type ProviderRequest struct {
	Name            string
	DurationMinutes int
	Active          *bool // nil means active
}

type PatientRequest struct {
	Name string
}

type InsurancePlanRequest struct {
	Name   string
	Active *bool
}

func activeOrDefault(v *bool) bool {
	return v == nil || *v
}

func (s *Service) CreateProvider(ctx context.Context, tenantID string, req ProviderRequest) (model.Provider, error) {
	if err := requireTenant(tenantID); err != nil {
		return model.Provider{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Provider{}, apperr.Invalid("name is required")
	}
	if req.DurationMinutes <= 0 || req.DurationMinutes > int(model.EndOfDay) {
		return model.Provider{}, apperr.Invalid("duration_minutes must be between 1 and %d", int(model.EndOfDay))
	}
	p := model.Provider{
		ID:              s.newID(),
		TenantID:        tenantID,
		Name:            name,
		Active:          activeOrDefault(req.Active),
		DurationMinutes: req.DurationMinutes,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.store.InsertProvider(ctx, p); err != nil {
		return model.Provider{}, fmt.Errorf("insert provider: %w", err)
	}
	s.logger.Info("provider created", "provider_id", p.ID, "clinic_id", tenantID)
	return p, nil
}

func (s *Service) GetProvider(ctx context.Context, id, tenantID string) (model.Provider, error) {
	if err := requireTenant(tenantID); err != nil {
		return model.Provider{}, err
	}
	return s.provider(ctx, tenantID, id)
}

func (s *Service) ListProviders(ctx context.Context, tenantID string) ([]model.Provider, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	return s.store.ListProviders(ctx, tenantID)
}

// SetProviderActive toggles whether the provider accepts new bookings.
// Existing appointments are left alone.
func (s *Service) SetProviderActive(ctx context.Context, id, tenantID string, active bool) (model.Provider, error) {
	if err := requireTenant(tenantID); err != nil {
		return model.Provider{}, err
	}
	p, err := s.store.SetProviderActive(ctx, tenantID, id, active)
	if apperr.IsNotFound(err) {
		return model.Provider{}, apperr.NotFound("provider not found").With("provider_id", id)
	}
	if err != nil {
		return model.Provider{}, fmt.Errorf("update provider: %w", err)
	}
	s.logger.Info("provider activation changed", "provider_id", id, "clinic_id", tenantID, "active", active)
	return p, nil
}

func (s *Service) CreatePatient(ctx context.Context, tenantID string, req PatientRequest) (model.Patient, error) {
	if err := requireTenant(tenantID); err != nil {
		return model.Patient{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Patient{}, apperr.Invalid("name is required")
	}
	p := model.Patient{
		ID:        s.newID(),
		TenantID:  tenantID,
		Name:      name,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.InsertPatient(ctx, p); err != nil {
		return model.Patient{}, fmt.Errorf("insert patient: %w", err)
	}
	return p, nil
}

func (s *Service) GetPatient(ctx context.Context, id, tenantID string) (model.Patient, error) {
	if err := requireTenant(tenantID); err != nil {
		return model.Patient{}, err
	}
	return s.patient(ctx, tenantID, id)
}

func (s *Service) ListPatients(ctx context.Context, tenantID string) ([]model.Patient, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	return s.store.ListPatients(ctx, tenantID)
}

func (s *Service) CreateInsurancePlan(ctx context.Context, tenantID string, req InsurancePlanRequest) (model.InsurancePlan, error) {
	if err := requireTenant(tenantID); err != nil {
		return model.InsurancePlan{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.InsurancePlan{}, apperr.Invalid("name is required")
	}
	p := model.InsurancePlan{
		ID:        s.newID(),
		TenantID:  tenantID,
		Name:      name,
		Active:    activeOrDefault(req.Active),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.InsertInsurancePlan(ctx, p); err != nil {
		return model.InsurancePlan{}, fmt.Errorf("insert insurance plan: %w", err)
	}
	return p, nil
}

func (s *Service) GetInsurancePlan(ctx context.Context, id, tenantID string) (model.InsurancePlan, error) {
	if err := requireTenant(tenantID); err != nil {
		return model.InsurancePlan{}, err
	}
	return s.insurancePlan(ctx, tenantID, id)
}

func (s *Service) ListInsurancePlans(ctx context.Context, tenantID string) ([]model.InsurancePlan, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	return s.store.ListInsurancePlans(ctx, tenantID)
}

func (s *Service) SetInsurancePlanActive(ctx context.Context, id, tenantID string, active bool) (model.InsurancePlan, error) {
	if err := requireTenant(tenantID); err != nil {
		return model.InsurancePlan{}, err
	}
	p, err := s.store.SetInsurancePlanActive(ctx, tenantID, id, active)
	if apperr.IsNotFound(err) {
		return model.InsurancePlan{}, apperr.NotFound("insurance plan not found").With("insurance_plan_id", id)
	}
	if err != nil {
		return model.InsurancePlan{}, fmt.Errorf("update insurance plan: %w", err)
	}
	s.logger.Info("insurance plan activation changed", "insurance_plan_id", id, "clinic_id", tenantID, "active", active)
	return p, nil
}
