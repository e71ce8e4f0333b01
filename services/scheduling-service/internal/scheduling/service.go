// Package scheduling orchestrates appointment booking for a clinic: it checks
// the provider's weekly grid, the past-time guard, overlaps and the status
// machine, then writes the appointment and its lifecycle event atomically.
package scheduling

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/apperr"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
)

var tracer = otel.Tracer("github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/scheduling")

type Service struct {
	store    Store
	grid     *availability.Grid
	now      func() time.Time
	loc      *time.Location
	logger   *slog.Logger
	observer Observer
	locker   SlotLocker
	newID    func() string
}

type Option func(*Service)

// WithClock replaces time.Now for the past-time guard and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the clinic time zone in which "today" and "now" are read.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

func WithSlotLocker(l SlotLocker) Option {
	return func(s *Service) { s.locker = l }
}

// WithIDGenerator overrides uuid-based identifiers.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		grid:   availability.NewGrid(store),
		now:    time.Now,
		loc:    time.UTC,
		logger: slog.New(slog.DiscardHandler),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// begin opens a span for op and returns the func that closes it, recording
// the outcome with the observer.
func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "scheduling."+op)
	span.SetAttributes(attrs...)
	return ctx, func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}
		if err != nil {
			span.RecordError(err)
			if apperr.KindOf(err) == apperr.KindUnknown {
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetAttributes(attribute.String("scheduling.outcome", apperr.KindOf(err).String()))
			}
		}
		span.End()
		if s.observer != nil {
			s.observer.Observe(op, time.Since(started), err)
		}
	}
}

// clinicNow is the current instant in the clinic time zone.
func (s *Service) clinicNow() time.Time {
	return s.now().In(s.loc)
}

// checkNotPast rejects dates before today and, for today, starts before the
// current minute. A start equal to the current minute is accepted.
func (s *Service) checkNotPast(date time.Time, start model.Minute) error {
	now := s.clinicNow()
	today := model.DateOf(now)
	switch {
	case date.Before(today):
		return apperr.BusinessRule("date is in the past").
			With("date", date.Format(model.DateLayout)).
			With("today", today.Format(model.DateLayout))
	case date.Equal(today) && start < model.MinuteOf(now):
		return apperr.BusinessRule("time has already passed").
			With("start", start.String()).
			With("now", model.MinuteOf(now).String())
	}
	return nil
}

// checkAvailability requires [start,end) to fit one of the provider's windows
// for the weekday of date.
func (s *Service) checkAvailability(ctx context.Context, provider model.Provider, date time.Time, start, end model.Minute) error {
	weekday := model.WeekdayOf(date)
	ok, windows, err := s.grid.IsWithinAvailability(ctx, provider.ID, weekday, start, end)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if len(windows) == 0 {
		return apperr.BusinessRule("provider does not attend this weekday (%s)", weekday).
			With("weekday", weekday.String())
	}
	ranges := make([]string, 0, len(windows))
	for _, w := range windows {
		ranges = append(ranges, w.Start.String()+"-"+w.End.String())
	}
	return apperr.BusinessRule("requested time %s-%s is outside availability (available at %s)", start, end, availability.Describe(windows)).
		With("weekday", weekday.String()).
		With("windows", ranges)
}

func (s *Service) provider(ctx context.Context, tenantID, id string) (model.Provider, error) {
	p, err := s.store.Provider(ctx, tenantID, id)
	if apperr.IsNotFound(err) {
		return model.Provider{}, apperr.NotFound("provider not found").With("provider_id", id)
	}
	return p, err
}

func (s *Service) patient(ctx context.Context, tenantID, id string) (model.Patient, error) {
	p, err := s.store.Patient(ctx, tenantID, id)
	if apperr.IsNotFound(err) {
		return model.Patient{}, apperr.NotFound("patient not found").With("patient_id", id)
	}
	return p, err
}

func (s *Service) insurancePlan(ctx context.Context, tenantID, id string) (model.InsurancePlan, error) {
	p, err := s.store.InsurancePlan(ctx, tenantID, id)
	if apperr.IsNotFound(err) {
		return model.InsurancePlan{}, apperr.NotFound("insurance plan not found").With("insurance_plan_id", id)
	}
	return p, err
}

// lockSlot takes the optional distributed lock; without a locker it is a no-op.
func (s *Service) lockSlot(ctx context.Context, key model.SlotKey) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	return s.locker.Lock(ctx, key.String())
}

func requireTenant(tenantID string) error {
	if tenantID == "" {
		return apperr.Invalid("clinic id is required")
	}
	return nil
}
