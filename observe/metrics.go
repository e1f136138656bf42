package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Attempt describes one physical attempt inside a logical call.
type Attempt struct {
	Number     int           // 1-based
	Outcome    string        // classification, e.g. "success", "retryable"
	StatusCode int           // zero for transport failures
	Duration   time.Duration // transport latency
}

// Metrics records pipeline metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Recording is fire-and-forget: it must return quickly and never panic.
type Metrics interface {
	// RecordAttempt records one transport attempt.
	RecordAttempt(ctx context.Context, meta CallMeta, attempt Attempt)

	// RecordCall records a completed logical call.
	RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error)

	// RecordCircuitTransition records a breaker state change.
	RecordCircuitTransition(ctx context.Context, profile, from, to string)
}

type metricsImpl struct {
	attempts        metric.Int64Counter
	attemptDuration metric.Float64Histogram
	calls           metric.Int64Counter
	callErrors      metric.Int64Counter
	callDuration    metric.Float64Histogram
	transitions     metric.Int64Counter
}

// NewMetrics creates the pipeline instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	attempts, err := meter.Int64Counter(
		"adminops.request.attempts",
		metric.WithDescription("Transport attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	attemptDuration, err := meter.Float64Histogram(
		"adminops.request.attempt.duration_ms",
		metric.WithDescription("Transport attempt latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	calls, err := meter.Int64Counter(
		"adminops.call.total",
		metric.WithDescription("Total number of logical calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	callErrors, err := meter.Int64Counter(
		"adminops.call.errors",
		metric.WithDescription("Total number of failed logical calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	callDuration, err := meter.Float64Histogram(
		"adminops.call.duration_ms",
		metric.WithDescription("Logical call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"adminops.circuit.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		attempts:        attempts,
		attemptDuration: attemptDuration,
		calls:           calls,
		callErrors:      callErrors,
		callDuration:    callDuration,
		transitions:     transitions,
	}, nil
}

func callAttrs(meta CallMeta) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("profile", meta.Profile),
		attribute.String("method", meta.Method),
		attribute.String("operation", meta.OperationName()),
	}
}

func (m *metricsImpl) RecordAttempt(ctx context.Context, meta CallMeta, a Attempt) {
	attrs := append(callAttrs(meta),
		attribute.String("outcome", a.Outcome),
		attribute.Int("status_code", a.StatusCode),
	)
	opt := metric.WithAttributes(attrs...)

	m.attempts.Add(ctx, 1, opt)
	m.attemptDuration.Record(ctx, float64(a.Duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(callAttrs(meta)...)

	m.calls.Add(ctx, 1, opt)
	if err != nil {
		m.callErrors.Add(ctx, 1, opt)
	}
	m.callDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordCircuitTransition(ctx context.Context, profile, from, to string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", profile),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

type noopMetrics struct{}

func (noopMetrics) RecordAttempt(context.Context, CallMeta, Attempt)                 {}
func (noopMetrics) RecordCall(context.Context, CallMeta, time.Duration, error)       {}
func (noopMetrics) RecordCircuitTransition(context.Context, string, string, string) {}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return noopMetrics{}
}
