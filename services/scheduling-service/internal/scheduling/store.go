package scheduling

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/conflict"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/outbox"
)

// Directory resolves the records an appointment refers to. Lookups are scoped
// to the tenant: a foreign or missing id yields an apperr NotFound.
type Directory interface {
	Provider(ctx context.Context, tenantID, id string) (model.Provider, error)
	Patient(ctx context.Context, tenantID, id string) (model.Patient, error)
	InsurancePlan(ctx context.Context, tenantID, id string) (model.InsurancePlan, error)
}

// DirectoryWriter maintains providers, patients and insurance plans.
type DirectoryWriter interface {
	InsertProvider(ctx context.Context, p model.Provider) error
	ListProviders(ctx context.Context, tenantID string) ([]model.Provider, error)
	SetProviderActive(ctx context.Context, tenantID, id string, active bool) (model.Provider, error)

	InsertPatient(ctx context.Context, p model.Patient) error
	ListPatients(ctx context.Context, tenantID string) ([]model.Patient, error)

	InsertInsurancePlan(ctx context.Context, p model.InsurancePlan) error
	ListInsurancePlans(ctx context.Context, tenantID string) ([]model.InsurancePlan, error)
	SetInsurancePlanActive(ctx context.Context, tenantID, id string, active bool) (model.InsurancePlan, error)
}

// Windows stores the weekly availability grid.
type Windows interface {
	availability.WindowSource
	ListWindowsByTenant(ctx context.Context, tenantID string) ([]model.AvailabilityWindow, error)
	FindWindow(ctx context.Context, id string) (model.AvailabilityWindow, error)
	InsertWindow(ctx context.Context, w model.AvailabilityWindow) error
	DeleteWindow(ctx context.Context, id string) error
}

// Appointments is the appointment repository. Reads take no locks; writes go
// through InTx.
type Appointments interface {
	FindByID(ctx context.Context, id string) (model.Appointment, error)
	FindAllByTenant(ctx context.Context, tenantID string) ([]model.Appointment, error)
	FindByProviderAndDate(ctx context.Context, tenantID, providerID string, date time.Time) ([]model.Appointment, error)
	// InTx runs fn in one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the transactional view used by mutating operations.
type Tx interface {
	// LockSlot serializes writers of one provider's day until the transaction ends.
	LockSlot(ctx context.Context, key model.SlotKey) error
	FindByIDForUpdate(ctx context.Context, id string) (model.Appointment, error)
	FindByProviderAndDate(ctx context.Context, tenantID, providerID string, date time.Time) ([]model.Appointment, error)
	ExistsConflict(ctx context.Context, q conflict.Query) (bool, error)
	Insert(ctx context.Context, appt model.Appointment) error
	Update(ctx context.Context, appt model.Appointment) error
	AppendEvent(ctx context.Context, evt outbox.Event) error
}

// Store bundles every collaborator the service needs. The Postgres and
// in-memory stores both satisfy it.
type Store interface {
	Directory
	DirectoryWriter
	Windows
	Appointments
}

// SlotLocker is an optional cross-process lock taken before the transaction.
// The returned release func is always safe to call.
type SlotLocker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// Observer receives one call per service operation.
type Observer interface {
	Observe(op string, d time.Duration, err error)
}
