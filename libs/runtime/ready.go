package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// ReadyCheck is a named dependency check for /readyz and the gRPC health service.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

// CheckResult is the outcome of one ReadyCheck.
type CheckResult struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
	Err  string `json:"error,omitempty"`
}

// RunChecks runs every check concurrently, each bounded by timeout, and
// returns the results in registration order. ok is false when any check failed.
func RunChecks(ctx context.Context, timeout time.Duration, checks ...ReadyCheck) (results []CheckResult, ok bool) {
	results = make([]CheckResult, len(checks))
	var g errgroup.Group
	for i, check := range checks {
		name := check.Name
		if name == "" {
			name = "dependency"
		}
		results[i] = CheckResult{Name: name, OK: true}
		if check.Check == nil {
			continue
		}
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if err := check.Check(checkCtx); err != nil {
				results[i].OK = false
				results[i].Err = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	ok = true
	for _, r := range results {
		ok = ok && r.OK
	}
	return results, ok
}

// NewBaseMuxWithReady registers /healthz, /readyz and /metrics. Metrics are served
// from gatherer, or from the default prometheus registry when gatherer is nil.
func NewBaseMuxWithReady(gatherer prometheus.Gatherer, checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		results, ok := RunChecks(r.Context(), 2*time.Second, checks...)
		body := struct {
			Status string        `json:"status"`
			Checks []CheckResult `json:"checks"`
		}{Status: "ok", Checks: results}
		code := http.StatusOK
		if !ok {
			body.Status = "unavailable"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	})
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
