package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestReadyzReportsFailures(t *testing.T) {
	mux := NewBaseMuxWithReady(prometheus.NewRegistry(),
		ReadyCheck{Name: "db", Check: func(context.Context) error { return nil }},
		ReadyCheck{Name: "kafka", Check: func(context.Context) error { return errors.New("down") }},
	)

	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rw.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rw.Code)
	}
	var body struct {
		Status string        `json:"status"`
		Checks []CheckResult `json:"checks"`
	}
	if err := json.Unmarshal(rw.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Status != "unavailable" || len(body.Checks) != 2 {
		t.Fatalf("unexpected body %+v", body)
	}
	if !body.Checks[0].OK || body.Checks[1].OK || body.Checks[1].Err != "down" {
		t.Fatalf("unexpected checks %+v", body.Checks)
	}

	rw = httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200 from healthz, got %d", rw.Code)
	}
}

func TestRunChecksIsConcurrentAndBounded(t *testing.T) {
	slow := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	start := time.Now()
	results, ok := RunChecks(context.Background(), 50*time.Millisecond,
		ReadyCheck{Name: "a", Check: slow},
		ReadyCheck{Name: "b", Check: slow},
		ReadyCheck{Check: nil},
	)
	if ok {
		t.Fatal("expected failure")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("checks did not run concurrently: %s", elapsed)
	}
	if results[0].OK || results[1].OK || !results[2].OK || results[2].Name != "dependency" {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "runtime_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	mux := NewBaseMuxWithReady(reg)
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	if !strings.Contains(rw.Body.String(), "runtime_test_total 1") {
		t.Fatalf("counter missing from metrics output")
	}
}

func TestLoggerLevelAndServiceField(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "svc", "warn")
	logger.Info("hidden")
	logger.Warn("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec["service"] != "svc" || rec["msg"] != "shown" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestShutdownRunsInReverse(t *testing.T) {
	var order []string
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	Shutdown(logger, time.Second,
		Closer{Name: "first", Close: func(context.Context) error { order = append(order, "first"); return nil }},
		Closer{Name: "second", Close: func(context.Context) error { order = append(order, "second"); return errors.New("x") }},
		Closer{Name: "third", Close: func(context.Context) error { order = append(order, "third"); return nil }},
	)
	if strings.Join(order, ",") != "third,second,first" {
		t.Fatalf("unexpected order %v", order)
	}
}
