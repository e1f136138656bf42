package observe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestCallMeta_SpanName(t *testing.T) {
	assert.Equal(t, "adminops.create_job", CallMeta{Method: "POST", Path: "/services/search/jobs", Operation: "create_job"}.SpanName())
	assert.Equal(t, "adminops.GET /services/server/info", CallMeta{Method: "GET", Path: "/services/server/info"}.SpanName())
}

func TestTracer_SpanAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := NewTracer(tp.Tracer("test"))

	_, span := tracer.StartSpan(context.Background(), CallMeta{
		Profile:   "prod",
		Method:    "GET",
		Path:      "/services/server/info",
		RequestID: "req-9",
	})
	tracer.EndSpan(span, nil)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	s := spans[0]
	assert.Equal(t, codes.Ok, s.Status().Code)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range s.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "prod", attrs["adminops.profile"].AsString())
	assert.Equal(t, "GET", attrs["http.request.method"].AsString())
	assert.Equal(t, "req-9", attrs["adminops.request_id"].AsString())
	assert.False(t, attrs["adminops.error"].AsBool())
	_, hasOp := attrs["adminops.operation"]
	assert.False(t, hasOp)
}

func TestTracer_ErrorRecording(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := NewTracer(tp.Tracer("test"))

	_, span := tracer.StartSpan(context.Background(), CallMeta{Method: "GET", Path: "/x"})
	tracer.EndSpan(span, errors.New("circuit open"))

	s := recorder.Ended()[0]
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Equal(t, "circuit open", s.Status().Description)
	require.NotEmpty(t, s.Events())
	assert.Equal(t, "exception", s.Events()[0].Name)
}

func TestNopTracer(t *testing.T) {
	tracer := NopTracer()
	ctx, span := tracer.StartSpan(context.Background(), CallMeta{})
	assert.NotNil(t, ctx)
	tracer.EndSpan(span, errors.New("ignored"))
}
