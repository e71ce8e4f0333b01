package scheduling_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/apperr"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/scheduling"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/storage/memstore"
)

const (
	clinicA = "clinic-a"
	clinicB = "clinic-b"
)

// 2030-01-06 is a Sunday; the fixture's provider works Mondays 08:00-18:00.
var (
	now       = time.Date(2030, 1, 6, 12, 0, 0, 0, time.UTC)
	sunday    = time.Date(2030, 1, 6, 0, 0, 0, 0, time.UTC)
	monday    = time.Date(2030, 1, 7, 0, 0, 0, 0, time.UTC)
	tuesday   = time.Date(2030, 1, 8, 0, 0, 0, 0, time.UTC)
	saturday  = time.Date(2030, 1, 5, 0, 0, 0, 0, time.UTC)
	nextMonth = time.Date(2030, 2, 4, 0, 0, 0, 0, time.UTC)
)

func at(h, m int) model.Minute { return model.Minute(h*60 + m) }

type fixture struct {
	ctx          context.Context
	store        *memstore.Store
	svc          *scheduling.Service
	provider     model.Provider
	patient      model.Patient
	plan         model.InsurancePlan
	inactivePlan model.InsurancePlan
}

func newFixture(t *testing.T, opts ...scheduling.Option) *fixture {
	t.Helper()
	store := memstore.New()
	opts = append([]scheduling.Option{scheduling.WithClock(func() time.Time { return now })}, opts...)
	svc := scheduling.New(store, opts...)
	ctx := context.Background()

	provider, err := svc.CreateProvider(ctx, clinicA, scheduling.ProviderRequest{Name: "Dr. Lima", DurationMinutes: 30})
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}
	if _, err := svc.CreateWindow(ctx, clinicA, scheduling.WindowRequest{
		ProviderID: provider.ID, Weekday: model.Monday, Start: at(8, 0), End: at(18, 0),
	}); err != nil {
		t.Fatalf("create window: %v", err)
	}
	patient, err := svc.CreatePatient(ctx, clinicA, scheduling.PatientRequest{Name: "Maria"})
	if err != nil {
		t.Fatalf("create patient: %v", err)
	}
	plan, err := svc.CreateInsurancePlan(ctx, clinicA, scheduling.InsurancePlanRequest{Name: "Unimed"})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	inactive := false
	inactivePlan, err := svc.CreateInsurancePlan(ctx, clinicA, scheduling.InsurancePlanRequest{Name: "Legacy", Active: &inactive})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	return &fixture{
		ctx: ctx, store: store, svc: svc,
		provider: provider, patient: patient, plan: plan, inactivePlan: inactivePlan,
	}
}

func (f *fixture) request(date time.Time, start model.Minute) scheduling.CreateRequest {
	return scheduling.CreateRequest{
		PatientID:   f.patient.ID,
		ProviderID:  f.provider.ID,
		Date:        date,
		Start:       start,
		PaymentKind: model.PaymentPrivate,
	}
}

func (f *fixture) book(t *testing.T, date time.Time, start model.Minute) model.Appointment {
	t.Helper()
	appt, err := f.svc.Create(f.ctx, clinicA, f.request(date, start))
	if err != nil {
		t.Fatalf("create %s %s: %v", date.Format(model.DateLayout), start, err)
	}
	return appt
}

func expectKind(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error containing %q, got nil", kind, msg)
	}
	if got := apperr.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s: %v", kind, got, err)
	}
	if msg != "" && !strings.Contains(err.Error(), msg) {
		t.Fatalf("expected message containing %q, got %q", msg, err.Error())
	}
}

func TestCreateDerivesEndAndSchedules(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, monday, at(9, 0))

	if appt.End != at(9, 30) {
		t.Fatalf("expected end 09:30, got %s", appt.End)
	}
	if appt.Status != model.StatusScheduled {
		t.Fatalf("expected scheduled, got %s", appt.Status)
	}
	if appt.TenantID != clinicA || appt.ID == "" {
		t.Fatalf("unexpected appointment %+v", appt)
	}

	events := f.store.Events()
	if len(events) != 1 || events[0].EventType != outbox.EventAppointmentCreated || events[0].AggregateID != appt.ID {
		t.Fatalf("expected one created event, got %+v", events)
	}
}

func TestCreateRejectsOverlapButAllowsAdjacent(t *testing.T) {
	f := newFixture(t)
	f.book(t, monday, at(9, 0))

	_, err := f.svc.Create(f.ctx, clinicA, f.request(monday, at(9, 15)))
	expectKind(t, err, apperr.KindConflict, "already has an appointment")

	if _, err := f.svc.Create(f.ctx, clinicA, f.request(monday, at(9, 30))); err != nil {
		t.Fatalf("adjacent slot should be free: %v", err)
	}
	if _, err := f.svc.Create(f.ctx, clinicA, f.request(monday, at(8, 30))); err != nil {
		t.Fatalf("slot ending at 09:00 should be free: %v", err)
	}
}

func TestCreateChecksAvailability(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, clinicA, f.request(tuesday, at(9, 0)))
	expectKind(t, err, apperr.KindBusinessRule, "does not attend this weekday")

	_, err = f.svc.Create(f.ctx, clinicA, f.request(monday, at(19, 0)))
	expectKind(t, err, apperr.KindBusinessRule, "outside availability")
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
	windows, _ := appErr.Details["windows"].([]string)
	if len(windows) != 1 || windows[0] != "08:00-18:00" {
		t.Fatalf("expected windows detail [08:00-18:00], got %v", appErr.Details["windows"])
	}

	// 17:45 + 30 min runs past the window end.
	_, err = f.svc.Create(f.ctx, clinicA, f.request(monday, at(17, 45)))
	expectKind(t, err, apperr.KindBusinessRule, "outside availability")
	if _, err := f.svc.Create(f.ctx, clinicA, f.request(monday, at(17, 30))); err != nil {
		t.Fatalf("slot ending at window end should fit: %v", err)
	}
}

func TestCreateInsuranceRules(t *testing.T) {
	f := newFixture(t)

	req := f.request(monday, at(9, 0))
	req.PaymentKind = model.PaymentInsurance
	_, err := f.svc.Create(f.ctx, clinicA, req)
	expectKind(t, err, apperr.KindBusinessRule, "plan required")

	req.InsurancePlanID = f.inactivePlan.ID
	_, err = f.svc.Create(f.ctx, clinicA, req)
	expectKind(t, err, apperr.KindBusinessRule, "plan inactive")

	req.InsurancePlanID = "missing"
	_, err = f.svc.Create(f.ctx, clinicA, req)
	expectKind(t, err, apperr.KindNotFound, "insurance plan not found")

	req.InsurancePlanID = f.plan.ID
	appt, err := f.svc.Create(f.ctx, clinicA, req)
	if err != nil {
		t.Fatalf("insurance booking: %v", err)
	}
	if appt.InsurancePlanID != f.plan.ID {
		t.Fatalf("expected plan %s, got %q", f.plan.ID, appt.InsurancePlanID)
	}

	private := f.request(monday, at(10, 0))
	private.InsurancePlanID = f.plan.ID
	appt, err = f.svc.Create(f.ctx, clinicA, private)
	if err != nil {
		t.Fatalf("private booking: %v", err)
	}
	if appt.InsurancePlanID != "" {
		t.Fatalf("private payment must drop the plan id, got %q", appt.InsurancePlanID)
	}
}

func TestCreateRequiresKnownActiveProviderAndPatient(t *testing.T) {
	f := newFixture(t)

	req := f.request(monday, at(9, 0))
	req.ProviderID = "nope"
	_, err := f.svc.Create(f.ctx, clinicA, req)
	expectKind(t, err, apperr.KindNotFound, "provider not found")

	req = f.request(monday, at(9, 0))
	req.PatientID = "nope"
	_, err = f.svc.Create(f.ctx, clinicA, req)
	expectKind(t, err, apperr.KindNotFound, "patient not found")

	_, err = f.svc.Create(f.ctx, clinicB, f.request(monday, at(9, 0)))
	expectKind(t, err, apperr.KindNotFound, "provider not found")

	if _, err := f.svc.SetProviderActive(f.ctx, f.provider.ID, clinicA, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err = f.svc.Create(f.ctx, clinicA, f.request(monday, at(9, 0)))
	expectKind(t, err, apperr.KindBusinessRule, "inactive")
}

func TestCreateValidatesInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, "", f.request(monday, at(9, 0)))
	expectKind(t, err, apperr.KindInvalid, "")

	req := f.request(monday, at(9, 0))
	req.PaymentKind = "cash"
	_, err = f.svc.Create(f.ctx, clinicA, req)
	expectKind(t, err, apperr.KindInvalid, "payment_kind")

	req = f.request(monday, model.EndOfDay)
	_, err = f.svc.Create(f.ctx, clinicA, req)
	expectKind(t, err, apperr.KindInvalid, "start")
}

func TestPastTimeGuard(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.CreateWindow(f.ctx, clinicA, scheduling.WindowRequest{
		ProviderID: f.provider.ID, Weekday: model.Sunday, Start: at(8, 0), End: at(18, 0),
	}); err != nil {
		t.Fatalf("create sunday window: %v", err)
	}
	if _, err := f.svc.CreateWindow(f.ctx, clinicA, scheduling.WindowRequest{
		ProviderID: f.provider.ID, Weekday: model.Saturday, Start: at(8, 0), End: at(18, 0),
	}); err != nil {
		t.Fatalf("create saturday window: %v", err)
	}

	_, err := f.svc.Create(f.ctx, clinicA, f.request(saturday, at(9, 0)))
	expectKind(t, err, apperr.KindBusinessRule, "date is in the past")

	_, err = f.svc.Create(f.ctx, clinicA, f.request(sunday, at(11, 59)))
	expectKind(t, err, apperr.KindBusinessRule, "time has already passed")

	if _, err := f.svc.Create(f.ctx, clinicA, f.request(sunday, at(12, 0))); err != nil {
		t.Fatalf("start at the current minute should be accepted: %v", err)
	}
	if _, err := f.svc.Create(f.ctx, clinicA, f.request(nextMonth, at(8, 0))); err != nil {
		t.Fatalf("future date should be accepted: %v", err)
	}
}

func TestPastTimeGuardUsesClinicTimeZone(t *testing.T) {
	// 2030-01-06 12:00 UTC is 2030-01-07 01:00 in Auckland (UTC+13), a Monday.
	auckland := time.FixedZone("NZDT", 13*60*60)
	f := newFixture(t, scheduling.WithLocation(auckland))

	_, err := f.svc.Create(f.ctx, clinicA, f.request(sunday, at(13, 0)))
	expectKind(t, err, apperr.KindBusinessRule, "date is in the past")

	if _, err := f.svc.Create(f.ctx, clinicA, f.request(monday, at(8, 0))); err != nil {
		t.Fatalf("later today in clinic time should be accepted: %v", err)
	}
}

func TestCancelFreesSlot(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, monday, at(9, 0))

	canceled, err := f.svc.Cancel(f.ctx, appt.ID, clinicA, false)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.Status != model.StatusCanceledByPatient {
		t.Fatalf("expected canceled_by_patient, got %s", canceled.Status)
	}

	again := f.book(t, monday, at(9, 0))
	if again.ID == appt.ID {
		t.Fatal("expected a new appointment")
	}

	_, err = f.svc.Cancel(f.ctx, appt.ID, clinicA, true)
	expectKind(t, err, apperr.KindBusinessRule, "already canceled")
}

func TestRescheduleRules(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, monday, at(9, 0))
	other := f.book(t, monday, at(10, 0))

	same, err := f.svc.Reschedule(f.ctx, appt.ID, clinicA, scheduling.RescheduleRequest{NewDate: monday, NewStart: at(9, 0)})
	if err != nil {
		t.Fatalf("no-op reschedule should succeed: %v", err)
	}
	if same.Start != at(9, 0) || same.End != at(9, 30) {
		t.Fatalf("unexpected interval %s-%s", same.Start, same.End)
	}

	_, err = f.svc.Reschedule(f.ctx, appt.ID, clinicA, scheduling.RescheduleRequest{NewDate: monday, NewStart: at(9, 45)})
	expectKind(t, err, apperr.KindConflict, "")

	_, err = f.svc.Reschedule(f.ctx, appt.ID, clinicA, scheduling.RescheduleRequest{NewDate: tuesday, NewStart: at(9, 0)})
	expectKind(t, err, apperr.KindBusinessRule, "does not attend this weekday")

	if _, err := f.svc.UpdateStatus(f.ctx, other.ID, clinicA, model.StatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	moved, err := f.svc.Reschedule(f.ctx, other.ID, clinicA, scheduling.RescheduleRequest{NewDate: nextMonth, NewStart: at(14, 0)})
	if err != nil {
		t.Fatalf("reschedule confirmed: %v", err)
	}
	if moved.Status != model.StatusScheduled {
		t.Fatalf("reschedule must reset status to scheduled, got %s", moved.Status)
	}
	if !moved.Date.Equal(nextMonth) || moved.End != at(14, 30) {
		t.Fatalf("unexpected moved appointment %+v", moved)
	}

	// 10:00 is now free on the original day.
	f.book(t, monday, at(10, 0))

	if _, err := f.svc.Cancel(f.ctx, appt.ID, clinicA, true); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err = f.svc.Reschedule(f.ctx, appt.ID, clinicA, scheduling.RescheduleRequest{NewDate: monday, NewStart: at(15, 0)})
	expectKind(t, err, apperr.KindBusinessRule, "canceled")

	var rescheduled int
	for _, evt := range f.store.Events() {
		if evt.EventType == outbox.EventAppointmentRescheduled {
			rescheduled++
		}
	}
	if rescheduled != 2 {
		t.Fatalf("expected 2 rescheduled events, got %d", rescheduled)
	}
}

func TestFinalizedAppointments(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, monday, at(9, 0))

	if _, err := f.svc.UpdateStatus(f.ctx, appt.ID, clinicA, model.StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	_, err := f.svc.Cancel(f.ctx, appt.ID, clinicA, true)
	expectKind(t, err, apperr.KindBusinessRule, "already completed")

	_, err = f.svc.UpdateStatus(f.ctx, appt.ID, clinicA, model.StatusConfirmed)
	expectKind(t, err, apperr.KindBusinessRule, "already finalized")

	_, err = f.svc.Reschedule(f.ctx, appt.ID, clinicA, scheduling.RescheduleRequest{NewDate: monday, NewStart: at(11, 0)})
	expectKind(t, err, apperr.KindBusinessRule, "")
}

func TestUpdateStatusNeverCancels(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, monday, at(9, 0))

	for _, target := range []model.Status{model.StatusCanceledByClinic, model.StatusCanceledByPatient} {
		_, err := f.svc.UpdateStatus(f.ctx, appt.ID, clinicA, target)
		expectKind(t, err, apperr.KindBusinessRule, "cancel")
	}
	_, err := f.svc.UpdateStatus(f.ctx, appt.ID, clinicA, "archived")
	expectKind(t, err, apperr.KindInvalid, "")

	for _, target := range []model.Status{model.StatusConfirmed, model.StatusScheduled, model.StatusNoShow} {
		got, err := f.svc.UpdateStatus(f.ctx, appt.ID, clinicA, target)
		if err != nil {
			t.Fatalf("update to %s: %v", target, err)
		}
		if got.Status != target {
			t.Fatalf("expected %s, got %s", target, got.Status)
		}
	}

	// no_show still allows cancellation.
	if _, err := f.svc.Cancel(f.ctx, appt.ID, clinicA, true); err != nil {
		t.Fatalf("cancel no_show: %v", err)
	}
}

func TestCrossTenantIsNotFound(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t, monday, at(9, 0))
	windows, err := f.svc.ListWindows(f.ctx, clinicA)
	if err != nil || len(windows) != 1 {
		t.Fatalf("list windows: %v %v", windows, err)
	}

	_, err = f.svc.FindByID(f.ctx, appt.ID, clinicB)
	expectKind(t, err, apperr.KindNotFound, "appointment not found")
	_, err = f.svc.Reschedule(f.ctx, appt.ID, clinicB, scheduling.RescheduleRequest{NewDate: monday, NewStart: at(11, 0)})
	expectKind(t, err, apperr.KindNotFound, "")
	_, err = f.svc.Cancel(f.ctx, appt.ID, clinicB, true)
	expectKind(t, err, apperr.KindNotFound, "")
	_, err = f.svc.UpdateStatus(f.ctx, appt.ID, clinicB, model.StatusConfirmed)
	expectKind(t, err, apperr.KindNotFound, "")
	_, err = f.svc.FindWindow(f.ctx, windows[0].ID, clinicB)
	expectKind(t, err, apperr.KindNotFound, "")
	err = f.svc.DeleteWindow(f.ctx, windows[0].ID, clinicB)
	expectKind(t, err, apperr.KindNotFound, "")
	_, err = f.svc.GetPatient(f.ctx, f.patient.ID, clinicB)
	expectKind(t, err, apperr.KindNotFound, "")
	_, err = f.svc.SetInsurancePlanActive(f.ctx, f.plan.ID, clinicB, false)
	expectKind(t, err, apperr.KindNotFound, "")

	list, err := f.svc.FindAllByTenant(f.ctx, clinicB)
	if err != nil || len(list) != 0 {
		t.Fatalf("expected no appointments for clinic-b, got %v %v", list, err)
	}

	got, err := f.svc.FindByID(f.ctx, appt.ID, clinicA)
	if err != nil || got.Status != model.StatusScheduled {
		t.Fatalf("owner lookup: %+v %v", got, err)
	}
}

func TestFindAllByTenantIsOrdered(t *testing.T) {
	f := newFixture(t)
	f.book(t, nextMonth, at(8, 0))
	f.book(t, monday, at(11, 0))
	f.book(t, monday, at(9, 0))

	list, err := f.svc.FindAllByTenant(f.ctx, clinicA)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 appointments, got %d", len(list))
	}
	if list[0].Start != at(9, 0) || list[1].Start != at(11, 0) || !list[2].Date.Equal(nextMonth) {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestConcurrentCreatesBookOnce(t *testing.T) {
	f := newFixture(t)

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Starts 09:00..09:15 all overlap one another.
			_, err := f.svc.Create(f.ctx, clinicA, f.request(monday, at(9, i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperr.IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if ok != 1 || conflicts != n-1 {
		t.Fatalf("expected exactly one booking, got ok=%d conflicts=%d", ok, conflicts)
	}
}

func TestNoOverlapAfterMixedSequence(t *testing.T) {
	f := newFixture(t)
	starts := []model.Minute{at(8, 0), at(8, 20), at(8, 30), at(9, 0), at(9, 10), at(9, 40), at(10, 0)}
	var booked []model.Appointment
	for _, s := range starts {
		if appt, err := f.svc.Create(f.ctx, clinicA, f.request(monday, s)); err == nil {
			booked = append(booked, appt)
		}
	}
	if len(booked) > 0 {
		if _, err := f.svc.Cancel(f.ctx, booked[0].ID, clinicA, true); err != nil {
			t.Fatalf("cancel: %v", err)
		}
	}
	for _, s := range starts {
		_, _ = f.svc.Create(f.ctx, clinicA, f.request(monday, s))
	}
	if len(booked) > 1 {
		_, _ = f.svc.Reschedule(f.ctx, booked[1].ID, clinicA, scheduling.RescheduleRequest{NewDate: monday, NewStart: at(8, 15)})
	}

	all, err := f.svc.FindAllByTenant(f.ctx, clinicA)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			a, b := all[i], all[j]
			if !a.Active() || !b.Active() || !a.Date.Equal(b.Date) {
				continue
			}
			if a.Start < b.End && a.End > b.Start {
				t.Fatalf("overlapping active appointments %s-%s and %s-%s", a.Start, a.End, b.Start, b.End)
			}
		}
	}
}

type recordingLocker struct {
	mu       sync.Mutex
	keys     []string
	released int
	err      error
}

func (l *recordingLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.keys = append(l.keys, key)
	return func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}, nil
}

func TestSlotLockerWrapsWrites(t *testing.T) {
	locker := &recordingLocker{}
	f := newFixture(t, scheduling.WithSlotLocker(locker))
	appt := f.book(t, monday, at(9, 0))

	want := clinicA + ":" + f.provider.ID + ":2030-01-07"
	if len(locker.keys) != 1 || locker.keys[0] != want || locker.released != 1 {
		t.Fatalf("expected one lock on %s, got keys=%v released=%d", want, locker.keys, locker.released)
	}

	locker.err = apperr.Unavailable("slot is busy")
	_, err := f.svc.Reschedule(f.ctx, appt.ID, clinicA, scheduling.RescheduleRequest{NewDate: monday, NewStart: at(10, 0)})
	expectKind(t, err, apperr.KindUnavailable, "slot is busy")
}

type recordingObserver struct {
	ops  []string
	errs []error
}

func (o *recordingObserver) Observe(op string, _ time.Duration, err error) {
	o.ops = append(o.ops, op)
	o.errs = append(o.errs, err)
}

func TestObserverSeesEveryMutation(t *testing.T) {
	obs := &recordingObserver{}
	f := newFixture(t, scheduling.WithObserver(obs))
	obs.ops, obs.errs = nil, nil

	appt := f.book(t, monday, at(9, 0))
	_, _ = f.svc.Create(f.ctx, clinicA, f.request(monday, at(9, 0)))
	_, _ = f.svc.Cancel(f.ctx, appt.ID, clinicA, true)

	want := []string{"create", "create", "cancel"}
	if strings.Join(obs.ops, ",") != strings.Join(want, ",") {
		t.Fatalf("expected ops %v, got %v", want, obs.ops)
	}
	if obs.errs[0] != nil || !apperr.IsConflict(obs.errs[1]) || obs.errs[2] != nil {
		t.Fatalf("unexpected outcomes %v", obs.errs)
	}
}

func TestFreeSlots(t *testing.T) {
	f := newFixture(t)
	f.book(t, monday, at(9, 0))

	slots, err := f.svc.FreeSlots(f.ctx, clinicA, f.provider.ID, monday, 0)
	if err != nil {
		t.Fatalf("free slots: %v", err)
	}
	// 08:00..17:30 in 30 minute steps is 20 slots, one taken.
	if len(slots) != 19 {
		t.Fatalf("expected 19 slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.Start == at(9, 0) {
			t.Fatal("booked slot listed as free")
		}
		if s.End-s.Start != 30 {
			t.Fatalf("unexpected slot length %s-%s", s.Start, s.End)
		}
	}

	slots, err = f.svc.FreeSlots(f.ctx, clinicA, f.provider.ID, tuesday, 0)
	if err != nil || len(slots) != 0 {
		t.Fatalf("expected no slots on tuesday, got %v %v", slots, err)
	}
	slots, err = f.svc.FreeSlots(f.ctx, clinicA, f.provider.ID, saturday, 0)
	if err != nil || len(slots) != 0 {
		t.Fatalf("expected no slots in the past, got %v %v", slots, err)
	}
	_, err = f.svc.FreeSlots(f.ctx, clinicB, f.provider.ID, monday, 0)
	expectKind(t, err, apperr.KindNotFound, "")
}

func TestFreeSlotsTodaySkipsElapsedMinutes(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.CreateWindow(f.ctx, clinicA, scheduling.WindowRequest{
		ProviderID: f.provider.ID, Weekday: model.Sunday, Start: at(11, 0), End: at(13, 0),
	}); err != nil {
		t.Fatalf("create window: %v", err)
	}
	slots, err := f.svc.FreeSlots(f.ctx, clinicA, f.provider.ID, sunday, 15)
	if err != nil {
		t.Fatalf("free slots: %v", err)
	}
	// now is 12:00: 12:00, 12:15, 12:30 fit before 13:00.
	if len(slots) != 3 || slots[0].Start != at(12, 0) {
		t.Fatalf("unexpected slots %v", slots)
	}
}
