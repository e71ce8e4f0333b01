package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/apperr"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
)

const windowColumns = `id, tenant_id, provider_id, weekday, start_minute, end_minute, created_at`

func (s *Store) ListWindows(ctx context.Context, providerID string, weekday model.Weekday) ([]model.AvailabilityWindow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		WHERE provider_id = $1 AND weekday = $2
		ORDER BY start_minute ASC, end_minute ASC
	`, providerID, int(weekday))
	if err != nil {
		return nil, err
	}
	return collectWindows(rows)
}

func (s *Store) ListWindowsByTenant(ctx context.Context, tenantID string) ([]model.AvailabilityWindow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		WHERE tenant_id = $1
		ORDER BY provider_id ASC, weekday ASC, start_minute ASC, id ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	return collectWindows(rows)
}

func (s *Store) FindWindow(ctx context.Context, id string) (model.AvailabilityWindow, error) {
	w, err := scanWindow(s.pool.QueryRow(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		WHERE id = $1
	`, id))
	return w, translate(err, "availability window")
}

func (s *Store) InsertWindow(ctx context.Context, w model.AvailabilityWindow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO availability_windows (id, tenant_id, provider_id, weekday, start_minute, end_minute, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, w.ID, w.TenantID, w.ProviderID, int(w.Weekday), int(w.Start), int(w.End), w.CreatedAt)
	return translate(err, "availability window")
}

func (s *Store) DeleteWindow(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM availability_windows WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("availability window not found")
	}
	return nil
}

func scanWindow(row pgx.Row) (model.AvailabilityWindow, error) {
	var (
		w                   model.AvailabilityWindow
		weekday, start, end int
	)
	if err := row.Scan(&w.ID, &w.TenantID, &w.ProviderID, &weekday, &start, &end, &w.CreatedAt); err != nil {
		return model.AvailabilityWindow{}, err
	}
	w.Weekday = model.Weekday(weekday)
	w.Start, w.End = model.Minute(start), model.Minute(end)
	return w, nil
}

func collectWindows(rows pgx.Rows) ([]model.AvailabilityWindow, error) {
	defer rows.Close()
	windows := []model.AvailabilityWindow{}
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return windows, nil
}
