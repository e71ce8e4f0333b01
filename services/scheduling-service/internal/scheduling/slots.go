package scheduling

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/apperr"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
)

// Slot is a bookable interval for one consultation.
type Slot struct {
	Start model.Minute
	End   model.Minute
}

// FreeSlots lists the starts on date where one consultation of the provider
// fits inside a window without overlapping an active appointment. step <= 0
// means the provider's duration. Past dates and inactive providers yield none.
func (s *Service) FreeSlots(ctx context.Context, tenantID, providerID string, date time.Time, step model.Minute) (slots []Slot, err error) {
	ctx, done := s.begin(ctx, "free_slots",
		attribute.String("clinic.id", tenantID),
		attribute.String("provider.id", providerID))
	defer done(&err)

	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, apperr.Invalid("date is required")
	}
	date = model.DateOf(date)
	provider, err := s.provider(ctx, tenantID, providerID)
	if err != nil {
		return nil, err
	}
	slots = []Slot{}
	if !provider.Active {
		return slots, nil
	}

	now := s.clinicNow()
	today := model.DateOf(now)
	var notBefore model.Minute
	switch {
	case date.Before(today):
		return slots, nil
	case date.Equal(today):
		notBefore = model.MinuteOf(now)
	}

	duration := model.Minute(provider.DurationMinutes)
	if step <= 0 {
		step = duration
	}

	weekday := model.WeekdayOf(date)
	windows, err := s.store.ListWindows(ctx, provider.ID, weekday)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	appts, err := s.store.FindByProviderAndDate(ctx, tenantID, provider.ID, date)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	busy := make([]availability.Interval, 0, len(appts))
	for _, a := range appts {
		if a.Active() {
			busy = append(busy, availability.Interval{Start: a.Start, End: a.End})
		}
	}

	for _, start := range availability.FreeSlots(windows, duration, step, busy, notBefore) {
		slots = append(slots, Slot{Start: start, End: start + duration})
	}
	return slots, nil
}
