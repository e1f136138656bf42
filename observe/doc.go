// Package observe provides the logging, metrics and tracing used by the
// request pipeline.
//
// Logger is a small structured logging interface backed by zerolog, with
// automatic redaction of credential fields. Metrics and Tracer wrap
// OpenTelemetry instruments; Observer wires the SDK providers and exporters
// together and routes the SDK's own diagnostics into the same zerolog sink.
// Middleware instruments one logical call with a span, call metrics and a
// completion log line.
package observe
