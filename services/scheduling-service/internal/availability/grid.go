package availability

import (
	"context"
	"sort"
	"strings"

	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/apperr"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
)

// WindowSource lists a provider's windows for one weekday.
type WindowSource interface {
	ListWindows(ctx context.Context, providerID string, weekday model.Weekday) ([]model.AvailabilityWindow, error)
}

// Grid answers whether an interval fits a provider's recurring weekly availability.
type Grid struct {
	src WindowSource
}

func NewGrid(src WindowSource) *Grid {
	return &Grid{src: src}
}

// IsWithinAvailability reports whether [start,end) lies inside one of the
// provider's windows for weekday. It also returns every window of that weekday,
// sorted by start, so callers can tell "no windows" from "no match".
func (g *Grid) IsWithinAvailability(ctx context.Context, providerID string, weekday model.Weekday, start, end model.Minute) (bool, []model.AvailabilityWindow, error) {
	windows, err := g.src.ListWindows(ctx, providerID, weekday)
	if err != nil {
		return false, nil, err
	}
	windows = sortedForWeekday(windows, weekday)
	return Contains(windows, start, end), windows, nil
}

// Contains reports whether some window satisfies w.Start <= start && end <= w.End.
// Overlapping windows are fine; they are not merged.
func Contains(windows []model.AvailabilityWindow, start, end model.Minute) bool {
	if end <= start {
		return false
	}
	for _, w := range windows {
		if w.Start <= start && end <= w.End {
			return true
		}
	}
	return false
}

func sortedForWeekday(windows []model.AvailabilityWindow, weekday model.Weekday) []model.AvailabilityWindow {
	out := make([]model.AvailabilityWindow, 0, len(windows))
	for _, w := range windows {
		if w.Weekday == weekday {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

// ValidateWindow checks weekday range and 0 <= start < end <= 24:00.
func ValidateWindow(weekday model.Weekday, start, end model.Minute) error {
	if !weekday.Valid() {
		return apperr.Invalid("weekday must be between 0 (Monday) and 6 (Sunday)")
	}
	if !start.Valid() || !end.Valid() || start == model.EndOfDay {
		return apperr.Invalid("window times must be between 00:00 and 24:00")
	}
	if start >= end {
		return apperr.Invalid("window start %s must be before end %s", start, end)
	}
	return nil
}

// Describe renders windows as "08:00-12:00, 14:00-18:00".
func Describe(windows []model.AvailabilityWindow) string {
	parts := make([]string, 0, len(windows))
	for _, w := range windows {
		parts = append(parts, w.Start.String()+"-"+w.End.String())
	}
	return strings.Join(parts, ", ")
}
