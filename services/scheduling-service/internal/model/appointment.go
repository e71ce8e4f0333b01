package model

import "time"

type Status string

const (
	StatusScheduled         Status = "scheduled"
	StatusConfirmed         Status = "confirmed"
	StatusCompleted         Status = "completed"
	StatusNoShow            Status = "no_show"
	StatusCanceledByClinic  Status = "canceled_by_clinic"
	StatusCanceledByPatient Status = "canceled_by_patient"
)

var AllStatuses = []Status{
	StatusScheduled,
	StatusConfirmed,
	StatusCompleted,
	StatusNoShow,
	StatusCanceledByClinic,
	StatusCanceledByPatient,
}

func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func (s Status) Canceled() bool {
	return s == StatusCanceledByClinic || s == StatusCanceledByPatient
}

type PaymentKind string

const (
	PaymentPrivate   PaymentKind = "private"
	PaymentInsurance PaymentKind = "insurance"
)

func (p PaymentKind) Valid() bool {
	return p == PaymentPrivate || p == PaymentInsurance
}

type Appointment struct {
	ID              string
	TenantID        string
	ProviderID      string
	PatientID       string
	Date            time.Time
	Start           Minute
	End             Minute
	Status          Status
	PaymentKind     PaymentKind
	InsurancePlanID string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Active reports whether the appointment still occupies its interval.
func (a Appointment) Active() bool {
	return !a.Status.Canceled()
}

func (a Appointment) SlotKey() SlotKey {
	return SlotKey{TenantID: a.TenantID, ProviderID: a.ProviderID, Date: a.Date}
}

// SlotKey is the unit of contention for bookings: one provider's day in one clinic.
type SlotKey struct {
	TenantID   string
	ProviderID string
	Date       time.Time
}

func (k SlotKey) String() string {
	return k.TenantID + ":" + k.ProviderID + ":" + k.Date.Format(DateLayout)
}
