package model

import "time"

type Provider struct {
	ID              string
	TenantID        string
	Name            string
	Active          bool
	DurationMinutes int
	CreatedAt       time.Time
}

type Patient struct {
	ID        string
	TenantID  string
	Name      string
	CreatedAt time.Time
}

type InsurancePlan struct {
	ID        string
	TenantID  string
	Name      string
	Active    bool
	CreatedAt time.Time
}

// AvailabilityWindow is a recurring weekly range [Start, End) in which a provider
// accepts appointments.
type AvailabilityWindow struct {
	ID         string
	TenantID   string
	ProviderID string
	Weekday    Weekday
	Start      Minute
	End        Minute
	CreatedAt  time.Time
}
