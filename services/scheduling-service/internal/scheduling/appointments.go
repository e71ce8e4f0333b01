package scheduling

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/apperr"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/conflict"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/lifecycle"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/outbox"
)

type CreateRequest struct {
	PatientID       string
	ProviderID      string
	Date            time.Time
	Start           model.Minute
	PaymentKind     model.PaymentKind
	InsurancePlanID string
	Notes           string
}

type RescheduleRequest struct {
	NewDate  time.Time
	NewStart model.Minute
}

func validStart(m model.Minute) bool {
	return m.Valid() && m < model.EndOfDay
}

// Create books a new appointment in the scheduled state.
func (s *Service) Create(ctx context.Context, tenantID string, req CreateRequest) (appt model.Appointment, err error) {
	ctx, done := s.begin(ctx, "create",
		attribute.String("clinic.id", tenantID),
		attribute.String("provider.id", req.ProviderID))
	defer done(&err)

	if err := requireTenant(tenantID); err != nil {
		return model.Appointment{}, err
	}
	req.PatientID = strings.TrimSpace(req.PatientID)
	req.ProviderID = strings.TrimSpace(req.ProviderID)
	if req.PatientID == "" || req.ProviderID == "" {
		return model.Appointment{}, apperr.Invalid("patient_id and provider_id are required")
	}
	if req.Date.IsZero() {
		return model.Appointment{}, apperr.Invalid("date is required")
	}
	if !validStart(req.Start) {
		return model.Appointment{}, apperr.Invalid("start must be between 00:00 and 23:59")
	}
	if !req.PaymentKind.Valid() {
		return model.Appointment{}, apperr.Invalid("payment_kind must be %q or %q", model.PaymentPrivate, model.PaymentInsurance)
	}
	date := model.DateOf(req.Date)

	provider, err := s.provider(ctx, tenantID, req.ProviderID)
	if err != nil {
		return model.Appointment{}, err
	}
	if _, err := s.patient(ctx, tenantID, req.PatientID); err != nil {
		return model.Appointment{}, err
	}
	if !provider.Active {
		return model.Appointment{}, apperr.BusinessRule("provider is inactive").With("provider_id", provider.ID)
	}

	start := req.Start
	end := start + model.Minute(provider.DurationMinutes)
	if err := s.checkNotPast(date, start); err != nil {
		return model.Appointment{}, err
	}
	if err := s.checkAvailability(ctx, provider, date, start, end); err != nil {
		return model.Appointment{}, err
	}

	now := s.now().UTC()
	appt = model.Appointment{
		ID:          s.newID(),
		TenantID:    tenantID,
		ProviderID:  provider.ID,
		PatientID:   req.PatientID,
		Date:        date,
		Start:       start,
		End:         end,
		Status:      model.StatusScheduled,
		PaymentKind: req.PaymentKind,
		Notes:       strings.TrimSpace(req.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	release, err := s.lockSlot(ctx, appt.SlotKey())
	if err != nil {
		return model.Appointment{}, err
	}
	defer release()

	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.LockSlot(ctx, appt.SlotKey()); err != nil {
			return err
		}
		if err := s.ensureFree(ctx, tx, appt, ""); err != nil {
			return err
		}
		planID, err := s.resolvePlan(ctx, tenantID, req.PaymentKind, strings.TrimSpace(req.InsurancePlanID))
		if err != nil {
			return err
		}
		appt.InsurancePlanID = planID
		if err := tx.Insert(ctx, appt); err != nil {
			return err
		}
		return appendEvent(ctx, tx, outbox.EventAppointmentCreated, appt, nil)
	})
	if err != nil {
		return model.Appointment{}, err
	}

	s.logger.Info("appointment created",
		"appointment_id", appt.ID,
		"clinic_id", tenantID,
		"provider_id", appt.ProviderID,
		"date", appt.Date.Format(model.DateLayout),
		"start", appt.Start.String(),
	)
	return appt, nil
}

// Reschedule moves an appointment to a new date and start and returns it to
// the scheduled state. The new end follows the provider's current duration.
func (s *Service) Reschedule(ctx context.Context, id, tenantID string, req RescheduleRequest) (appt model.Appointment, err error) {
	ctx, done := s.begin(ctx, "reschedule",
		attribute.String("clinic.id", tenantID),
		attribute.String("appointment.id", id))
	defer done(&err)

	if err := requireTenant(tenantID); err != nil {
		return model.Appointment{}, err
	}
	if req.NewDate.IsZero() {
		return model.Appointment{}, apperr.Invalid("new_date is required")
	}
	if !validStart(req.NewStart) {
		return model.Appointment{}, apperr.Invalid("new_start must be between 00:00 and 23:59")
	}
	date := model.DateOf(req.NewDate)

	current, err := s.FindByID(ctx, id, tenantID)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := lifecycle.CanReschedule(current.Status); err != nil {
		return model.Appointment{}, err
	}
	provider, err := s.provider(ctx, tenantID, current.ProviderID)
	if err != nil {
		return model.Appointment{}, err
	}

	start := req.NewStart
	end := start + model.Minute(provider.DurationMinutes)
	if err := s.checkNotPast(date, start); err != nil {
		return model.Appointment{}, err
	}
	if err := s.checkAvailability(ctx, provider, date, start, end); err != nil {
		return model.Appointment{}, err
	}

	key := model.SlotKey{TenantID: tenantID, ProviderID: current.ProviderID, Date: date}
	release, err := s.lockSlot(ctx, key)
	if err != nil {
		return model.Appointment{}, err
	}
	defer release()

	var prev model.Appointment
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.LockSlot(ctx, key); err != nil {
			return err
		}
		locked, err := s.loadForUpdate(ctx, tx, id, tenantID)
		if err != nil {
			return err
		}
		// The status may have moved since the unlocked read.
		if err := lifecycle.CanReschedule(locked.Status); err != nil {
			return err
		}
		prev = locked
		appt = locked
		appt.Date = date
		appt.Start = start
		appt.End = end
		appt.Status = lifecycle.RescheduleTarget()
		appt.UpdatedAt = s.now().UTC()
		if err := s.ensureFree(ctx, tx, appt, appt.ID); err != nil {
			return err
		}
		if err := tx.Update(ctx, appt); err != nil {
			return err
		}
		return appendEvent(ctx, tx, outbox.EventAppointmentRescheduled, appt, &prev)
	})
	if err != nil {
		return model.Appointment{}, err
	}

	s.logger.Info("appointment rescheduled",
		"appointment_id", appt.ID,
		"clinic_id", tenantID,
		"from", prev.Date.Format(model.DateLayout)+" "+prev.Start.String(),
		"to", appt.Date.Format(model.DateLayout)+" "+appt.Start.String(),
	)
	return appt, nil
}

// Cancel marks the appointment canceled by the clinic or by the patient.
func (s *Service) Cancel(ctx context.Context, id, tenantID string, byClinic bool) (appt model.Appointment, err error) {
	ctx, done := s.begin(ctx, "cancel",
		attribute.String("clinic.id", tenantID),
		attribute.String("appointment.id", id),
		attribute.Bool("by_clinic", byClinic))
	defer done(&err)

	if err := requireTenant(tenantID); err != nil {
		return model.Appointment{}, err
	}
	var prev model.Appointment
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		locked, err := s.loadForUpdate(ctx, tx, id, tenantID)
		if err != nil {
			return err
		}
		if err := lifecycle.CanCancel(locked.Status); err != nil {
			return err
		}
		prev = locked
		appt = locked
		appt.Status = lifecycle.CancelTarget(byClinic)
		appt.UpdatedAt = s.now().UTC()
		if err := tx.Update(ctx, appt); err != nil {
			return err
		}
		return appendEvent(ctx, tx, outbox.EventAppointmentCanceled, appt, &prev)
	})
	if err != nil {
		return model.Appointment{}, err
	}

	s.logger.Info("appointment canceled", "appointment_id", appt.ID, "clinic_id", tenantID, "status", string(appt.Status))
	return appt, nil
}

// UpdateStatus moves the appointment among the non-canceled states.
func (s *Service) UpdateStatus(ctx context.Context, id, tenantID string, requested model.Status) (appt model.Appointment, err error) {
	ctx, done := s.begin(ctx, "update_status",
		attribute.String("clinic.id", tenantID),
		attribute.String("appointment.id", id),
		attribute.String("status.requested", string(requested)))
	defer done(&err)

	if err := requireTenant(tenantID); err != nil {
		return model.Appointment{}, err
	}
	var prev model.Appointment
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		locked, err := s.loadForUpdate(ctx, tx, id, tenantID)
		if err != nil {
			return err
		}
		if err := lifecycle.CanUpdateStatus(locked.Status, requested); err != nil {
			return err
		}
		prev = locked
		appt = locked
		appt.Status = requested
		appt.UpdatedAt = s.now().UTC()
		if err := tx.Update(ctx, appt); err != nil {
			return err
		}
		return appendEvent(ctx, tx, outbox.EventAppointmentStatusChanged, appt, &prev)
	})
	if err != nil {
		return model.Appointment{}, err
	}

	s.logger.Info("appointment status changed",
		"appointment_id", appt.ID,
		"clinic_id", tenantID,
		"from", string(prev.Status),
		"to", string(appt.Status),
	)
	return appt, nil
}

// FindByID returns the appointment when it belongs to tenantID.
func (s *Service) FindByID(ctx context.Context, id, tenantID string) (model.Appointment, error) {
	if err := requireTenant(tenantID); err != nil {
		return model.Appointment{}, err
	}
	appt, err := s.store.FindByID(ctx, id)
	if apperr.IsNotFound(err) || (err == nil && appt.TenantID != tenantID) {
		return model.Appointment{}, appointmentNotFound(id)
	}
	if err != nil {
		return model.Appointment{}, fmt.Errorf("find appointment: %w", err)
	}
	return appt, nil
}

// FindAllByTenant lists the tenant's appointments ordered by date and start.
func (s *Service) FindAllByTenant(ctx context.Context, tenantID string) ([]model.Appointment, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	appts, err := s.store.FindAllByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	sort.SliceStable(appts, func(i, j int) bool {
		if !appts[i].Date.Equal(appts[j].Date) {
			return appts[i].Date.Before(appts[j].Date)
		}
		return appts[i].Start < appts[j].Start
	})
	return appts, nil
}

func (s *Service) loadForUpdate(ctx context.Context, tx Tx, id, tenantID string) (model.Appointment, error) {
	appt, err := tx.FindByIDForUpdate(ctx, id)
	if apperr.IsNotFound(err) || (err == nil && appt.TenantID != tenantID) {
		return model.Appointment{}, appointmentNotFound(id)
	}
	return appt, err
}

// ensureFree fails with Conflict when appt's interval overlaps another active
// appointment of the same provider and day.
func (s *Service) ensureFree(ctx context.Context, tx Tx, appt model.Appointment, excludeID string) error {
	busy, err := conflict.HasConflict(ctx, tx, conflict.Query{
		TenantID:   appt.TenantID,
		ProviderID: appt.ProviderID,
		Date:       appt.Date,
		Start:      appt.Start,
		End:        appt.End,
		ExcludeID:  excludeID,
	})
	if err != nil {
		return err
	}
	if busy {
		return apperr.Conflict("the provider already has an appointment at this time").
			With("provider_id", appt.ProviderID).
			With("date", appt.Date.Format(model.DateLayout)).
			With("start", appt.Start.String()).
			With("end", appt.End.String())
	}
	return nil
}

// resolvePlan returns the plan id to store. Non-insurance payments never keep
// a plan id.
func (s *Service) resolvePlan(ctx context.Context, tenantID string, kind model.PaymentKind, planID string) (string, error) {
	if kind != model.PaymentInsurance {
		return "", nil
	}
	if planID == "" {
		return "", apperr.BusinessRule("insurance plan required for insurance payments")
	}
	plan, err := s.insurancePlan(ctx, tenantID, planID)
	if err != nil {
		return "", err
	}
	if !plan.Active {
		return "", apperr.BusinessRule("insurance plan inactive").With("insurance_plan_id", plan.ID)
	}
	return plan.ID, nil
}

func appendEvent(ctx context.Context, tx Tx, eventType string, appt model.Appointment, prev *model.Appointment) error {
	evt, err := outbox.NewAppointmentEvent(eventType, appt, prev)
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	return tx.AppendEvent(ctx, evt)
}

func appointmentNotFound(id string) error {
	return apperr.NotFound("appointment not found").With("appointment_id", id)
}
