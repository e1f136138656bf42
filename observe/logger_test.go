package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "line: %s", line)
		out = append(out, entry)
	}
	return out
}

func TestLogger_IncludesCallFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).WithCall(CallMeta{
		Profile:   "prod",
		Method:    "GET",
		Path:      "/services/server/info",
		RequestID: "req-1",
	})

	logger.Info(context.Background(), "test message", Field{Key: "attempt", Value: 2})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "info", e["level"])
	assert.Equal(t, "test message", e["message"])
	assert.Equal(t, "prod", e["profile"])
	assert.Equal(t, "GET", e["method"])
	assert.Equal(t, "/services/server/info", e["path"])
	assert.Equal(t, "req-1", e["request_id"])
	assert.Equal(t, float64(2), e["attempt"])
	assert.Contains(t, e, "time")
	assert.NotContains(t, e, "operation")
}

func TestLogger_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)

	logger.Info(context.Background(), "login",
		Field{Key: "password", Value: "hunter2"},
		Field{Key: "Authorization", Value: "Splunk abc"},
		Field{Key: "session_key", Value: "abc"},
		Field{Key: "username", Value: "admin"},
	)
	logger.With(Field{Key: "token", Value: "xyz"}).Info(context.Background(), "scoped")

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "Splunk abc")
	assert.NotContains(t, out, "xyz")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, redacted, entries[0]["password"])
	assert.Equal(t, redacted, entries[0]["Authorization"])
	assert.Equal(t, "admin", entries[0]["username"])
	assert.Equal(t, redacted, entries[1]["token"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{"debug", []string{"debug", "info", "warn", "error"}},
		{"info", []string{"info", "warn", "error"}},
		{"warn", []string{"warn", "error"}},
		{"error", []string{"error"}},
		{"", []string{"info", "warn", "error"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(tt.level, &buf)
			ctx := context.Background()

			logger.Debug(ctx, "d")
			logger.Info(ctx, "i")
			logger.Warn(ctx, "w")
			logger.Error(ctx, "e")

			var got []string
			for _, e := range decodeLines(t, &buf) {
				got = append(got, e["level"].(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogger_ErrorField(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).Error(context.Background(), "failed",
		Field{Key: "error", Value: errors.New("connection refused")})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "connection refused", entries[0]["error"])
}

func TestLogger_TraceCorrelation(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).Info(ctx, "inside span")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, span.SpanContext().TraceID().String(), entries[0]["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entries[0]["span_id"])
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	l.Info(context.Background(), "ignored")
	l.With(Field{Key: "k", Value: 1}).WithCall(CallMeta{}).Error(context.Background(), "ignored")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "debug", ParseLogLevel("DEBUG").String())
	assert.Equal(t, "warn", ParseLogLevel("warn").String())
	assert.Equal(t, "info", ParseLogLevel("verbose").String())
}
