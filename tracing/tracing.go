// Package tracing provides OpenTelemetry span helpers for the generation
// client. Tracing is entirely optional — with a nil Config every helper is
// a cheap no-op.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config holds the OpenTelemetry configuration used by the client.
type Config struct {
	// TracerProvider supplies the Tracer used to create spans. When nil the
	// global otel.GetTracerProvider() is used.
	TracerProvider trace.TracerProvider
}

// tracer returns a configured [trace.Tracer].
func (c *Config) tracer() trace.Tracer {
	tp := c.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer("github.com/promptforge/imagegen")
}

var noopTracer = noop.NewTracerProvider().Tracer("")

// Start begins a span named name. With a nil cfg the returned span records
// nothing; callers may unconditionally End it.
func Start(ctx context.Context, cfg *Config, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if cfg == nil {
		return noopTracer.Start(ctx, name)
	}
	return cfg.tracer().Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...))
}

// End records err on the span (when non-nil) and finishes it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
