package kafkax

import (
	"context"
	"sort"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// InjectTraceHeaders returns headers with the propagator fields of ctx set.
// Existing headers with the same keys are replaced, so re-publishing a message
// never carries two traceparents.
func InjectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if len(carrier) == 0 {
		return headers
	}

	out := make([]kafka.Header, 0, len(headers)+len(carrier))
	for _, h := range headers {
		if _, replaced := carrier[h.Key]; !replaced {
			out = append(out, h)
		}
	}
	keys := carrier.Keys()
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, kafka.Header{Key: k, Value: []byte(carrier[k])})
	}
	return out
}
