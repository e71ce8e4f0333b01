package conflict

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
)

var monday = time.Date(2030, 1, 7, 0, 0, 0, 0, time.UTC)

type listSource struct {
	appts []model.Appointment
	err   error
}

func (s listSource) FindByProviderAndDate(_ context.Context, tenantID, providerID string, date time.Time) ([]model.Appointment, error) {
	return s.appts, s.err
}

type checkingSource struct {
	listSource
	called bool
}

func (s *checkingSource) ExistsConflict(_ context.Context, q Query) (bool, error) {
	s.called = true
	return true, nil
}

func appt(id string, start, end model.Minute, status model.Status) model.Appointment {
	return model.Appointment{
		ID: id, TenantID: "t1", ProviderID: "p1", Date: monday,
		Start: start, End: end, Status: status,
	}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		a1, a2, b1, b2 model.Minute
		want           bool
	}{
		{540, 570, 555, 585, true},
		{540, 570, 570, 600, false},
		{570, 600, 540, 570, false},
		{540, 600, 550, 560, true},
		{550, 560, 540, 600, true},
		{540, 570, 540, 570, true},
	}
	for _, tc := range cases {
		if got := Overlaps(tc.a1, tc.a2, tc.b1, tc.b2); got != tc.want {
			t.Errorf("Overlaps(%s-%s, %s-%s) = %v, want %v", tc.a1, tc.a2, tc.b1, tc.b2, got, tc.want)
		}
	}
}

func TestHasConflictScan(t *testing.T) {
	src := listSource{appts: []model.Appointment{
		appt("a1", 540, 570, model.StatusScheduled),
		appt("a2", 600, 630, model.StatusCanceledByPatient),
	}}
	ctx := context.Background()
	base := Query{TenantID: "t1", ProviderID: "p1", Date: monday}

	cases := []struct {
		name       string
		start, end model.Minute
		exclude    string
		want       bool
	}{
		{"overlaps active", 555, 585, "", true},
		{"adjacent after", 570, 600, "", false},
		{"canceled never obstructs", 600, 630, "", false},
		{"self excluded", 540, 570, "a1", false},
		{"other id excluded", 540, 570, "a9", true},
	}
	for _, tc := range cases {
		q := base
		q.Start, q.End, q.ExcludeID = tc.start, tc.end, tc.exclude
		got, err := HasConflict(ctx, src, q)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestObstructsIsScopedToTuple(t *testing.T) {
	a := appt("a1", 540, 570, model.StatusConfirmed)
	q := Query{TenantID: "t1", ProviderID: "p1", Date: monday, Start: 540, End: 570}
	if !Obstructs(a, q) {
		t.Fatal("expected same tuple to obstruct")
	}
	for _, mutate := range []func(*Query){
		func(q *Query) { q.TenantID = "t2" },
		func(q *Query) { q.ProviderID = "p2" },
		func(q *Query) { q.Date = monday.AddDate(0, 0, 1) },
	} {
		other := q
		mutate(&other)
		if Obstructs(a, other) {
			t.Fatalf("expected no obstruction across tuples, query %+v", other)
		}
	}
}

func TestHasConflictPrefersChecker(t *testing.T) {
	src := &checkingSource{}
	got, err := HasConflict(context.Background(), src, Query{})
	if err != nil || !got || !src.called {
		t.Fatalf("expected checker to answer, got=%v err=%v called=%v", got, err, src.called)
	}
}

func TestHasConflictPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	if _, err := HasConflict(context.Background(), listSource{err: boom}, Query{}); !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
}
