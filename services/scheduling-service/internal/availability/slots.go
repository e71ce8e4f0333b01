package availability

import (
	"sort"

	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
)

type Interval struct {
	Start model.Minute
	End   model.Minute
}

// FreeSlots returns slot starts inside windows where a consultation of length
// duration fits without overlapping any busy interval. Starts advance by step
// from each window start; starts before notBefore are skipped. The result is
// sorted and free of duplicates even when windows overlap.
func FreeSlots(windows []model.AvailabilityWindow, duration, step model.Minute, busy []Interval, notBefore model.Minute) []model.Minute {
	if duration <= 0 || step <= 0 {
		return nil
	}

	seen := map[model.Minute]bool{}
	var slots []model.Minute
	for _, w := range windows {
		if w.End <= w.Start {
			continue
		}
		for t := w.Start; t+duration <= w.End; t += step {
			if t < notBefore || seen[t] {
				continue
			}
			if overlapsAny(t, t+duration, busy) {
				continue
			}
			seen[t] = true
			slots = append(slots, t)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots
}

func overlapsAny(start, end model.Minute, busy []Interval) bool {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if start < b.End && b.Start < end {
			return true
		}
	}
	return false
}
