package availability

import (
	"context"
	"errors"
	"testing"

	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/apperr"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
)

type staticSource struct {
	windows []model.AvailabilityWindow
	err     error
}

func (s staticSource) ListWindows(_ context.Context, providerID string, weekday model.Weekday) ([]model.AvailabilityWindow, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []model.AvailabilityWindow
	for _, w := range s.windows {
		if w.ProviderID == providerID && w.Weekday == weekday {
			out = append(out, w)
		}
	}
	return out, nil
}

func hm(h, m int) model.Minute { return model.Minute(h*60 + m) }

func TestIsWithinAvailability(t *testing.T) {
	src := staticSource{windows: []model.AvailabilityWindow{
		{ProviderID: "p1", Weekday: model.Monday, Start: hm(14, 0), End: hm(18, 0)},
		{ProviderID: "p1", Weekday: model.Monday, Start: hm(8, 0), End: hm(12, 0)},
		{ProviderID: "p2", Weekday: model.Tuesday, Start: hm(8, 0), End: hm(12, 0)},
	}}
	g := NewGrid(src)
	ctx := context.Background()

	cases := []struct {
		name        string
		weekday     model.Weekday
		start, end  model.Minute
		wantOK      bool
		wantWindows int
	}{
		{"inside morning", model.Monday, hm(9, 0), hm(9, 30), true, 2},
		{"touches window end", model.Monday, hm(11, 30), hm(12, 0), true, 2},
		{"touches window start", model.Monday, hm(8, 0), hm(8, 30), true, 2},
		{"spans the gap", model.Monday, hm(11, 45), hm(14, 15), false, 2},
		{"after hours", model.Monday, hm(19, 0), hm(19, 30), false, 2},
		{"no windows that day", model.Tuesday, hm(9, 0), hm(9, 30), false, 0},
	}
	for _, tc := range cases {
		ok, windows, err := g.IsWithinAvailability(ctx, "p1", tc.weekday, tc.start, tc.end)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if ok != tc.wantOK || len(windows) != tc.wantWindows {
			t.Errorf("%s: got ok=%v windows=%d, want ok=%v windows=%d", tc.name, ok, len(windows), tc.wantOK, tc.wantWindows)
		}
	}

	_, windows, _ := g.IsWithinAvailability(ctx, "p1", model.Monday, hm(9, 0), hm(9, 30))
	if windows[0].Start != hm(8, 0) {
		t.Fatalf("expected windows sorted by start, got %v", windows)
	}
	if Describe(windows) != "08:00-12:00, 14:00-18:00" {
		t.Fatalf("unexpected description %q", Describe(windows))
	}
}

func TestContainsToleratesOverlappingWindows(t *testing.T) {
	windows := []model.AvailabilityWindow{
		{Start: hm(8, 0), End: hm(10, 0)},
		{Start: hm(9, 0), End: hm(11, 0)},
	}
	if !Contains(windows, hm(9, 30), hm(10, 30)) {
		t.Fatal("expected containment in the second window")
	}
	if Contains(windows, hm(8, 30), hm(10, 30)) {
		t.Fatal("union of windows must not count as containment")
	}
	if Contains(windows, hm(9, 0), hm(9, 0)) {
		t.Fatal("empty interval is never contained")
	}
}

func TestIsWithinAvailabilityPropagatesError(t *testing.T) {
	boom := errors.New("db down")
	_, _, err := NewGrid(staticSource{err: boom}).IsWithinAvailability(context.Background(), "p1", model.Monday, 0, 30)
	if !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
}

func TestValidateWindow(t *testing.T) {
	if err := ValidateWindow(model.Monday, hm(8, 0), hm(18, 0)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if err := ValidateWindow(model.Sunday, hm(20, 0), model.EndOfDay); err != nil {
		t.Fatalf("window may end at 24:00, got %v", err)
	}
	bad := []struct {
		weekday    model.Weekday
		start, end model.Minute
	}{
		{7, hm(8, 0), hm(9, 0)},
		{-1, hm(8, 0), hm(9, 0)},
		{model.Monday, hm(9, 0), hm(9, 0)},
		{model.Monday, hm(10, 0), hm(9, 0)},
		{model.Monday, model.EndOfDay, model.EndOfDay + 10},
	}
	for _, b := range bad {
		if err := ValidateWindow(b.weekday, b.start, b.end); apperr.KindOf(err) != apperr.KindInvalid {
			t.Errorf("ValidateWindow(%d, %s, %s): expected invalid, got %v", b.weekday, b.start, b.end, err)
		}
	}
}
