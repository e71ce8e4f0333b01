package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
)

func (s *Store) Provider(ctx context.Context, tenantID, id string) (model.Provider, error) {
	p, err := scanProvider(s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, active, duration_minutes, created_at
		FROM providers
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID))
	return p, translate(err, "provider")
}

func (s *Store) InsertProvider(ctx context.Context, p model.Provider) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO providers (id, tenant_id, name, active, duration_minutes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.TenantID, p.Name, p.Active, p.DurationMinutes, p.CreatedAt)
	return translate(err, "provider")
}

func (s *Store) ListProviders(ctx context.Context, tenantID string) ([]model.Provider, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, name, active, duration_minutes, created_at
		FROM providers
		WHERE tenant_id = $1
		ORDER BY created_at ASC, id ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	providers := []model.Provider{}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return providers, nil
}

func (s *Store) SetProviderActive(ctx context.Context, tenantID, id string, active bool) (model.Provider, error) {
	p, err := scanProvider(s.pool.QueryRow(ctx, `
		UPDATE providers
		SET active = $3
		WHERE id = $1 AND tenant_id = $2
		RETURNING id, tenant_id, name, active, duration_minutes, created_at
	`, id, tenantID, active))
	return p, translate(err, "provider")
}

func scanProvider(row pgx.Row) (model.Provider, error) {
	var p model.Provider
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Active, &p.DurationMinutes, &p.CreatedAt)
	return p, err
}

func (s *Store) Patient(ctx context.Context, tenantID, id string) (model.Patient, error) {
	var p model.Patient
	err := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, created_at
		FROM patients
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID).Scan(&p.ID, &p.TenantID, &p.Name, &p.CreatedAt)
	return p, translate(err, "patient")
}

func (s *Store) InsertPatient(ctx context.Context, p model.Patient) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO patients (id, tenant_id, name, created_at)
		VALUES ($1, $2, $3, $4)
	`, p.ID, p.TenantID, p.Name, p.CreatedAt)
	return translate(err, "patient")
}

func (s *Store) ListPatients(ctx context.Context, tenantID string) ([]model.Patient, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, name, created_at
		FROM patients
		WHERE tenant_id = $1
		ORDER BY created_at ASC, id ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	patients := []model.Patient{}
	for rows.Next() {
		var p model.Patient
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return patients, nil
}

func (s *Store) InsurancePlan(ctx context.Context, tenantID, id string) (model.InsurancePlan, error) {
	p, err := scanPlan(s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, active, created_at
		FROM insurance_plans
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID))
	return p, translate(err, "insurance plan")
}

func (s *Store) InsertInsurancePlan(ctx context.Context, p model.InsurancePlan) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO insurance_plans (id, tenant_id, name, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.TenantID, p.Name, p.Active, p.CreatedAt)
	return translate(err, "insurance plan")
}

func (s *Store) ListInsurancePlans(ctx context.Context, tenantID string) ([]model.InsurancePlan, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, name, active, created_at
		FROM insurance_plans
		WHERE tenant_id = $1
		ORDER BY created_at ASC, id ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []model.InsurancePlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return plans, nil
}

func (s *Store) SetInsurancePlanActive(ctx context.Context, tenantID, id string, active bool) (model.InsurancePlan, error) {
	p, err := scanPlan(s.pool.QueryRow(ctx, `
		UPDATE insurance_plans
		SET active = $3
		WHERE id = $1 AND tenant_id = $2
		RETURNING id, tenant_id, name, active, created_at
	`, id, tenantID, active))
	return p, translate(err, "insurance plan")
}

func scanPlan(row pgx.Row) (model.InsurancePlan, error) {
	var p model.InsurancePlan
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Active, &p.CreatedAt)
	return p, err
}
