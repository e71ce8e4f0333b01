// Package conflict decides whether a candidate interval collides with a
// provider's existing appointments on one day.
package conflict

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
)

// Query identifies the candidate interval. ExcludeID, when set, never obstructs
// (a reschedule must not collide with itself).
type Query struct {
	TenantID   string
	ProviderID string
	Date       time.Time
	Start      model.Minute
	End        model.Minute
	ExcludeID  string
}

// Source lists a provider's appointments for one day in one tenant.
type Source interface {
	FindByProviderAndDate(ctx context.Context, tenantID, providerID string, date time.Time) ([]model.Appointment, error)
}

// Checker evaluates the conflict predicate in a single store round trip.
type Checker interface {
	ExistsConflict(ctx context.Context, q Query) (bool, error)
}

// Overlaps reports whether the half-open intervals [aStart,aEnd) and [bStart,bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd model.Minute) bool {
	return aStart < bEnd && aEnd > bStart
}

// HasConflict prefers the store's atomic Checker and falls back to scanning
// the day's appointments with the same predicate.
func HasConflict(ctx context.Context, src Source, q Query) (bool, error) {
	if c, ok := src.(Checker); ok {
		return c.ExistsConflict(ctx, q)
	}
	appts, err := src.FindByProviderAndDate(ctx, q.TenantID, q.ProviderID, q.Date)
	if err != nil {
		return false, err
	}
	_, found := FirstConflict(appts, q)
	return found, nil
}

// FirstConflict returns the first appointment in appts that obstructs q.
func FirstConflict(appts []model.Appointment, q Query) (model.Appointment, bool) {
	for _, a := range appts {
		if Obstructs(a, q) {
			return a, true
		}
	}
	return model.Appointment{}, false
}

// Obstructs is the single conflict predicate shared by every store.
func Obstructs(a model.Appointment, q Query) bool {
	if !a.Active() {
		return false
	}
	if q.ExcludeID != "" && a.ID == q.ExcludeID {
		return false
	}
	if a.TenantID != q.TenantID || a.ProviderID != q.ProviderID || !a.Date.Equal(q.Date) {
		return false
	}
	return Overlaps(q.Start, q.End, a.Start, a.End)
}
