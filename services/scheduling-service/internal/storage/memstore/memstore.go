// Package memstore is an in-memory scheduling.Store for tests and single-node
// development. One mutex serializes transactions; readers see only committed
// state.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/apperr"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/conflict"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/scheduling"
)

var _ scheduling.Store = (*Store)(nil)

type Store struct {
	txMu sync.Mutex

	mu           sync.RWMutex
	providers    map[string]model.Provider
	patients     map[string]model.Patient
	plans        map[string]model.InsurancePlan
	windows      map[string]model.AvailabilityWindow
	appointments map[string]model.Appointment
	events       []outbox.Event
}

func New() *Store {
	return &Store{
		providers:    map[string]model.Provider{},
		patients:     map[string]model.Patient{},
		plans:        map[string]model.InsurancePlan{},
		windows:      map[string]model.AvailabilityWindow{},
		appointments: map[string]model.Appointment{},
	}
}

// Events returns a copy of every committed outbox event in write order.
func (s *Store) Events() []outbox.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]outbox.Event(nil), s.events...)
}

func (s *Store) Provider(_ context.Context, tenantID, id string) (model.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[id]
	if !ok || p.TenantID != tenantID {
		return model.Provider{}, apperr.NotFound("provider not found")
	}
	return p, nil
}

func (s *Store) Patient(_ context.Context, tenantID, id string) (model.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok || p.TenantID != tenantID {
		return model.Patient{}, apperr.NotFound("patient not found")
	}
	return p, nil
}

func (s *Store) InsurancePlan(_ context.Context, tenantID, id string) (model.InsurancePlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok || p.TenantID != tenantID {
		return model.InsurancePlan{}, apperr.NotFound("insurance plan not found")
	}
	return p, nil
}

func (s *Store) InsertProvider(_ context.Context, p model.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.providers[p.ID]; exists {
		return apperr.Conflict("provider %s already exists", p.ID)
	}
	s.providers[p.ID] = p
	return nil
}

func (s *Store) ListProviders(_ context.Context, tenantID string) ([]model.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Provider{}
	for _, p := range s.providers {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return byCreation(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (s *Store) SetProviderActive(_ context.Context, tenantID, id string, active bool) (model.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.providers[id]
	if !ok || p.TenantID != tenantID {
		return model.Provider{}, apperr.NotFound("provider not found")
	}
	p.Active = active
	s.providers[id] = p
	return p, nil
}

func (s *Store) InsertPatient(_ context.Context, p model.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.patients[p.ID]; exists {
		return apperr.Conflict("patient %s already exists", p.ID)
	}
	s.patients[p.ID] = p
	return nil
}

func (s *Store) ListPatients(_ context.Context, tenantID string) ([]model.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Patient{}
	for _, p := range s.patients {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return byCreation(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (s *Store) InsertInsurancePlan(_ context.Context, p model.InsurancePlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.plans[p.ID]; exists {
		return apperr.Conflict("insurance plan %s already exists", p.ID)
	}
	s.plans[p.ID] = p
	return nil
}

func (s *Store) ListInsurancePlans(_ context.Context, tenantID string) ([]model.InsurancePlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.InsurancePlan{}
	for _, p := range s.plans {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return byCreation(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (s *Store) SetInsurancePlanActive(_ context.Context, tenantID, id string, active bool) (model.InsurancePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok || p.TenantID != tenantID {
		return model.InsurancePlan{}, apperr.NotFound("insurance plan not found")
	}
	p.Active = active
	s.plans[id] = p
	return p, nil
}

func (s *Store) ListWindows(_ context.Context, providerID string, weekday model.Weekday) ([]model.AvailabilityWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.AvailabilityWindow{}
	for _, w := range s.windows {
		if w.ProviderID == providerID && w.Weekday == weekday {
			out = append(out, w)
		}
	}
	sortWindows(out)
	return out, nil
}

func (s *Store) ListWindowsByTenant(_ context.Context, tenantID string) ([]model.AvailabilityWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.AvailabilityWindow{}
	for _, w := range s.windows {
		if w.TenantID == tenantID {
			out = append(out, w)
		}
	}
	sortWindows(out)
	return out, nil
}

func (s *Store) FindWindow(_ context.Context, id string) (model.AvailabilityWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.windows[id]
	if !ok {
		return model.AvailabilityWindow{}, apperr.NotFound("availability window not found")
	}
	return w, nil
}

func (s *Store) InsertWindow(_ context.Context, w model.AvailabilityWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[w.ID] = w
	return nil
}

func (s *Store) DeleteWindow(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.windows[id]; !ok {
		return apperr.NotFound("availability window not found")
	}
	delete(s.windows, id)
	return nil
}

func (s *Store) FindByID(_ context.Context, id string) (model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return model.Appointment{}, apperr.NotFound("appointment not found")
	}
	return a, nil
}

func (s *Store) FindAllByTenant(_ context.Context, tenantID string) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Appointment{}
	for _, a := range s.appointments {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (s *Store) FindByProviderAndDate(_ context.Context, tenantID, providerID string, date time.Time) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byProviderAndDate(nil, tenantID, providerID, date), nil
}

// byProviderAndDate reads committed state overlaid with pending writes.
// Callers hold s.mu.
func (s *Store) byProviderAndDate(pending map[string]model.Appointment, tenantID, providerID string, date time.Time) []model.Appointment {
	out := []model.Appointment{}
	match := func(a model.Appointment) bool {
		return a.TenantID == tenantID && a.ProviderID == providerID && a.Date.Equal(date)
	}
	for id, a := range s.appointments {
		if p, ok := pending[id]; ok {
			a = p
		}
		if match(a) {
			out = append(out, a)
		}
	}
	for id, a := range pending {
		if _, committed := s.appointments[id]; !committed && match(a) {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out
}

// InTx runs fn while holding the store's transaction lock. Writes are buffered
// and applied only when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx scheduling.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &memTx{store: s, pending: map[string]model.Appointment{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range tx.pending {
		s.appointments[id] = a
	}
	s.events = append(s.events, tx.events...)
	return nil
}

type memTx struct {
	store   *Store
	pending map[string]model.Appointment
	events  []outbox.Event
}

// LockSlot is implied: InTx already serializes every writer.
func (t *memTx) LockSlot(ctx context.Context, _ model.SlotKey) error {
	return ctx.Err()
}

func (t *memTx) FindByIDForUpdate(_ context.Context, id string) (model.Appointment, error) {
	if a, ok := t.pending[id]; ok {
		return a, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	a, ok := t.store.appointments[id]
	if !ok {
		return model.Appointment{}, apperr.NotFound("appointment not found")
	}
	return a, nil
}

func (t *memTx) FindByProviderAndDate(_ context.Context, tenantID, providerID string, date time.Time) ([]model.Appointment, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.store.byProviderAndDate(t.pending, tenantID, providerID, date), nil
}

func (t *memTx) ExistsConflict(ctx context.Context, q conflict.Query) (bool, error) {
	appts, err := t.FindByProviderAndDate(ctx, q.TenantID, q.ProviderID, q.Date)
	if err != nil {
		return false, err
	}
	_, found := conflict.FirstConflict(appts, q)
	return found, nil
}

func (t *memTx) Insert(_ context.Context, appt model.Appointment) error {
	if _, ok := t.pending[appt.ID]; ok {
		return apperr.Conflict("appointment %s already exists", appt.ID)
	}
	t.store.mu.RLock()
	_, exists := t.store.appointments[appt.ID]
	t.store.mu.RUnlock()
	if exists {
		return apperr.Conflict("appointment %s already exists", appt.ID)
	}
	t.pending[appt.ID] = appt
	return nil
}

func (t *memTx) Update(ctx context.Context, appt model.Appointment) error {
	if _, err := t.FindByIDForUpdate(ctx, appt.ID); err != nil {
		return err
	}
	t.pending[appt.ID] = appt
	return nil
}

func (t *memTx) AppendEvent(_ context.Context, evt outbox.Event) error {
	t.events = append(t.events, evt)
	return nil
}

func sortWindows(ws []model.AvailabilityWindow) {
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].ProviderID != ws[j].ProviderID {
			return ws[i].ProviderID < ws[j].ProviderID
		}
		if ws[i].Weekday != ws[j].Weekday {
			return ws[i].Weekday < ws[j].Weekday
		}
		if ws[i].Start != ws[j].Start {
			return ws[i].Start < ws[j].Start
		}
		return ws[i].ID < ws[j].ID
	})
}

func sortAppointments(as []model.Appointment) {
	sort.Slice(as, func(i, j int) bool {
		if !as[i].Date.Equal(as[j].Date) {
			return as[i].Date.Before(as[j].Date)
		}
		if as[i].Start != as[j].Start {
			return as[i].Start < as[j].Start
		}
		return as[i].ID < as[j].ID
	})
}

func byCreation(ti time.Time, idi string, tj time.Time, idj string) bool {
	if !ti.Equal(tj) {
		return ti.Before(tj)
	}
	return idi < idj
}
