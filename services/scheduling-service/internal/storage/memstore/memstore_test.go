package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/apperr"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/conflict"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/scheduling"
)

var day = time.Date(2030, 1, 7, 0, 0, 0, 0, time.UTC)

func appt(id string, start model.Minute) model.Appointment {
	return model.Appointment{
		ID: id, TenantID: "t1", ProviderID: "p1", PatientID: "pt1",
		Date: day, Start: start, End: start + 30, Status: model.StatusScheduled,
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		if err := tx.Insert(ctx, appt("a1", 540)); err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, outbox.Event{EventType: outbox.EventAppointmentCreated}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.FindByID(ctx, "a1"); !apperr.IsNotFound(err) {
		t.Fatalf("expected rolled back insert, got %v", err)
	}
	if len(s.Events()) != 0 {
		t.Fatalf("expected no events, got %d", len(s.Events()))
	}
}

func TestInTxSeesOwnWrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.InTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
		if err := tx.Insert(ctx, appt("a1", 540)); err != nil {
			return err
		}
		busy, err := tx.ExistsConflict(ctx, conflict.Query{TenantID: "t1", ProviderID: "p1", Date: day, Start: 550, End: 580})
		if err != nil {
			return err
		}
		if !busy {
			t.Error("expected pending insert to obstruct")
		}
		if _, err := s.FindByID(ctx, "a1"); !apperr.IsNotFound(err) {
			t.Error("uncommitted insert leaked to readers")
		}
		updated := appt("a1", 540)
		updated.Status = model.StatusCanceledByClinic
		return tx.Update(ctx, updated)
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	got, err := s.FindByID(ctx, "a1")
	if err != nil || got.Status != model.StatusCanceledByClinic {
		t.Fatalf("expected committed canceled appointment, got %+v %v", got, err)
	}
	list, _ := s.FindByProviderAndDate(ctx, "t1", "p1", day)
	if len(list) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(list))
	}
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	s := New()
	ctx := context.Background()
	insert := func() error {
		return s.InTx(ctx, func(ctx context.Context, tx scheduling.Tx) error {
			return tx.Insert(ctx, appt("a1", 540))
		})
	}
	if err := insert(); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := insert(); !apperr.IsConflict(err) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}
}

func TestDirectoryIsTenantScoped(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.InsertProvider(ctx, model.Provider{ID: "p1", TenantID: "t1", Active: true, DurationMinutes: 30}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.Provider(ctx, "t2", "p1"); !apperr.IsNotFound(err) {
		t.Fatalf("expected not found across tenants, got %v", err)
	}
	if _, err := s.SetProviderActive(ctx, "t2", "p1", false); !apperr.IsNotFound(err) {
		t.Fatalf("expected not found across tenants, got %v", err)
	}
	p, err := s.SetProviderActive(ctx, "t1", "p1", false)
	if err != nil || p.Active {
		t.Fatalf("expected deactivated provider, got %+v %v", p, err)
	}
}

func TestWindowsAreOrdered(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, w := range []model.AvailabilityWindow{
		{ID: "w2", TenantID: "t1", ProviderID: "p1", Weekday: model.Monday, Start: 840, End: 1080},
		{ID: "w1", TenantID: "t1", ProviderID: "p1", Weekday: model.Monday, Start: 480, End: 720},
		{ID: "w3", TenantID: "t1", ProviderID: "p1", Weekday: model.Friday, Start: 480, End: 720},
	} {
		if err := s.InsertWindow(ctx, w); err != nil {
			t.Fatalf("insert window: %v", err)
		}
	}
	got, _ := s.ListWindows(ctx, "p1", model.Monday)
	if len(got) != 2 || got[0].ID != "w1" || got[1].ID != "w2" {
		t.Fatalf("unexpected monday windows %+v", got)
	}
	if err := s.DeleteWindow(ctx, "w1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteWindow(ctx, "w1"); !apperr.IsNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	all, _ := s.ListWindowsByTenant(ctx, "t1")
	if len(all) != 2 {
		t.Fatalf("expected 2 windows left, got %d", len(all))
	}
}
