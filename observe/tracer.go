package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// CallMeta describes one logical call for telemetry purposes.
type CallMeta struct {
	Profile   string // configured target profile
	Method    string // HTTP method
	Path      string // request path, without query
	Operation string // logical operation name (optional)
	RequestID string // client-generated request id (optional)
}

// SpanName returns the deterministic span name for this call.
// Format: adminops.<operation> or adminops.<METHOD> <path>
func (m CallMeta) SpanName() string {
	if m.Operation != "" {
		return "adminops." + m.Operation
	}
	return "adminops." + m.Method + " " + m.Path
}

// OperationName returns Operation, falling back to the path.
func (m CallMeta) OperationName() string {
	if m.Operation != "" {
		return m.Operation
	}
	return m.Path
}

// Tracer wraps OpenTelemetry tracing with call-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a logical call.
	StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", meta.Method),
		attribute.String("url.path", meta.Path),
		attribute.Bool("adminops.error", false),
	}
	if meta.Profile != "" {
		attrs = append(attrs, attribute.String("adminops.profile", meta.Profile))
	}
	if meta.Operation != "" {
		attrs = append(attrs, attribute.String("adminops.operation", meta.Operation))
	}
	if meta.RequestID != "" {
		attrs = append(attrs, attribute.String("adminops.request_id", meta.RequestID))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("adminops.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NopTracer returns a tracer whose spans are never recorded.
func NopTracer() Tracer {
	return &tracerImpl{tracer: tracenoop.NewTracerProvider().Tracer("noop")}
}
