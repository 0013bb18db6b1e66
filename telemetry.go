package sqsdispatch

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry brackets an invocation. Start is called once on entry, before the
// event is validated. End is called once on every exit path with the error
// the invocation returns, or nil.
type Telemetry interface {
	Start(ctx context.Context) context.Context
	End(ctx context.Context, err error)
}

// NopTelemetry does nothing.
type NopTelemetry struct{}

func (NopTelemetry) Start(ctx context.Context) context.Context { return ctx }
func (NopTelemetry) End(context.Context, error)                {}

// TracingTelemetry opens one OpenTelemetry span per invocation.
type TracingTelemetry struct {
	tracer trace.Tracer
	name   string
}

// NewTracingTelemetry returns Telemetry recording spans on tracer.
func NewTracingTelemetry(tracer trace.Tracer) *TracingTelemetry {
	return &TracingTelemetry{tracer: tracer, name: "sqsdispatch.invocation"}
}

// Start opens the invocation span.
func (t *TracingTelemetry) Start(ctx context.Context) context.Context {
	ctx, _ = t.tracer.Start(ctx, t.name, trace.WithSpanKind(trace.SpanKindConsumer))
	return ctx
}

// End records err on the span and closes it.
func (t *TracingTelemetry) End(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// annotate adds attributes to the invocation span, if one is recording.
func annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
