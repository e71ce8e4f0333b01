// Package metrics exports scheduling outcomes to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/md-rashed-zaman/clinicsched/services/scheduling-service/internal/apperr"
)

const Namespace = "clinicsched"

// Scheduling implements scheduling.Observer.
type Scheduling struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	published  *prometheus.CounterVec
}

func NewScheduling(reg prometheus.Registerer) *Scheduling {
	m := &Scheduling{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "scheduling",
			Name:      "operations_total",
			Help:      "Scheduling operations by outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "scheduling",
			Name:      "operation_duration_seconds",
			Help:      "Duration of scheduling operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "outbox_published_total",
			Help:      "Outbox events delivered to Kafka.",
		}, []string{"event_type"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.duration, m.published)
	}
	return m
}

func (m *Scheduling) Observe(op string, d time.Duration, err error) {
	m.operations.WithLabelValues(op, Outcome(err)).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

// OutboxPublished counts one delivered event.
func (m *Scheduling) OutboxPublished(eventType string) {
	m.published.WithLabelValues(eventType).Inc()
}

// Outcome is the label value for err: "ok", a domain kind, or "error".
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return "not_found"
	case apperr.KindConflict:
		return "conflict"
	case apperr.KindBusinessRule:
		return "rejected"
	case apperr.KindInvalid:
		return "invalid"
	case apperr.KindUnavailable:
		return "unavailable"
	default:
		return "error"
	}
}
