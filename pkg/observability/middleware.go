package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RequestObserver observes dispatched requests, recording a metric sample
// and a span per request. It satisfies the router's Observer interface
// structurally so neither package imports the other.
type RequestObserver struct {
	metrics MetricsProvider
	tracing *TracingProvider
}

// NewRequestObserver creates an observer over the given providers. Either
// provider may be nil; the corresponding signal is skipped.
func NewRequestObserver(metrics MetricsProvider, tracing *TracingProvider) *RequestObserver {
	return &RequestObserver{metrics: metrics, tracing: tracing}
}

// OnRequest starts observation of one request. The returned function must be
// called exactly once with the final status.
func (o *RequestObserver) OnRequest(ctx context.Context, method string) (context.Context, func(status string)) {
	start := time.Now()

	var span trace.Span
	if o.tracing != nil {
		ctx, span = o.tracing.StartMethodSpan(ctx, method)
	}

	return ctx, func(status string) {
		duration := time.Since(start)

		if o.metrics != nil {
			o.metrics.RecordRequest(ctx, method, status, duration)
		}

		if span != nil {
			span.SetAttributes(attribute.String("mcp.status", status))
			if status != "success" {
				span.SetStatus(codes.Error, status)
			} else {
				span.SetStatus(codes.Ok, "")
			}
			span.End()
		}
	}
}
