// Package storage is the Postgres implementation of scheduling.Store.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/clinicsched/libs/db"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/apperr"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/conflict"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/scheduling"
)

var _ scheduling.Store = (*Store)(nil)

type Store struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewStore(pool *db.Pool, outboxRepo *outbox.Repository) *Store {
	return &Store{pool: pool, outbox: outboxRepo}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const appointmentColumns = `id, tenant_id, provider_id, patient_id, appointment_date, start_minute, end_minute,
	status, payment_kind, COALESCE(insurance_plan_id, ''), notes, created_at, updated_at`

// notCanceled must match the predicate of the appointments_no_overlap constraint.
const notCanceled = `status NOT IN ('canceled_by_clinic', 'canceled_by_patient')`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		a                   model.Appointment
		start, end          int
		status, paymentKind string
	)
	err := row.Scan(
		&a.ID,
		&a.TenantID,
		&a.ProviderID,
		&a.PatientID,
		&a.Date,
		&start,
		&end,
		&status,
		&paymentKind,
		&a.InsurancePlanID,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	a.Date = model.DateOf(a.Date)
	a.Start, a.End = model.Minute(start), model.Minute(end)
	a.Status, a.PaymentKind = model.Status(status), model.PaymentKind(paymentKind)
	return a, nil
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()
	appts := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func findAppointmentsByProviderAndDate(ctx context.Context, q querier, tenantID, providerID string, date time.Time) ([]model.Appointment, error) {
	rows, err := q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1 AND provider_id = $2 AND appointment_date = $3
		ORDER BY start_minute ASC, id ASC
	`, tenantID, providerID, date)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// nullable stores "" as NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// translate maps driver errors to domain kinds at the repository boundary.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case IsNotFound(err):
		return apperr.NotFound("%s not found", what)
	case IsConflict(err):
		return apperr.Conflict("the provider already has an appointment at this time")
	case IsUniqueViolation(err):
		return apperr.Conflict("%s already exists", what)
	case IsForeignKeyViolation(err):
		return apperr.NotFound("%s refers to a missing record", what)
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Unavailable("database timed out")
	}
	return err
}

// Appointments

func (s *Store) FindByID(ctx context.Context, id string) (model.Appointment, error) {
	a, err := scanAppointment(s.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id))
	return a, translate(err, "appointment")
}

func (s *Store) FindAllByTenant(ctx context.Context, tenantID string) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1
		ORDER BY appointment_date ASC, start_minute ASC, id ASC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (s *Store) FindByProviderAndDate(ctx context.Context, tenantID, providerID string, date time.Time) ([]model.Appointment, error) {
	return findAppointmentsByProviderAndDate(ctx, s.pool, tenantID, providerID, date)
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx scheduling.Tx) error) error {
	return s.pool.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx, outbox: s.outbox})
	})
}

type pgTx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

// LockSlot takes a transaction-scoped advisory lock on the provider's day.
func (t *pgTx) LockSlot(ctx context.Context, key model.SlotKey) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key.String())
	return translate(err, "slot lock")
}

func (t *pgTx) FindByIDForUpdate(ctx context.Context, id string) (model.Appointment, error) {
	a, err := scanAppointment(t.tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id))
	return a, translate(err, "appointment")
}

func (t *pgTx) FindByProviderAndDate(ctx context.Context, tenantID, providerID string, date time.Time) ([]model.Appointment, error) {
	return findAppointmentsByProviderAndDate(ctx, t.tx, tenantID, providerID, date)
}

func (t *pgTx) ExistsConflict(ctx context.Context, q conflict.Query) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM appointments
			WHERE tenant_id = $1
				AND provider_id = $2
				AND appointment_date = $3
				AND `+notCanceled+`
				AND ($6::text = '' OR id <> $6::text)
				AND start_minute < $5
				AND end_minute > $4
		)
	`, q.TenantID, q.ProviderID, q.Date, int(q.Start), int(q.End), q.ExcludeID).Scan(&exists)
	return exists, err
}

func (t *pgTx) Insert(ctx context.Context, a model.Appointment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO appointments
			(id, tenant_id, provider_id, patient_id, appointment_date, start_minute, end_minute,
			 status, payment_kind, insurance_plan_id, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, a.ID, a.TenantID, a.ProviderID, a.PatientID, a.Date, int(a.Start), int(a.End),
		string(a.Status), string(a.PaymentKind), nullable(a.InsurancePlanID), a.Notes, a.CreatedAt, a.UpdatedAt)
	return translate(err, "appointment")
}

func (t *pgTx) Update(ctx context.Context, a model.Appointment) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE appointments
		SET appointment_date = $2,
			start_minute = $3,
			end_minute = $4,
			status = $5,
			updated_at = $6
		WHERE id = $1
	`, a.ID, a.Date, int(a.Start), int(a.End), string(a.Status), a.UpdatedAt)
	if err != nil {
		return translate(err, "appointment")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment not found")
	}
	return nil
}

func (t *pgTx) AppendEvent(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}
