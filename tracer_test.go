package appidmiddleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNoopTracer(t *testing.T) {
	tracer := &NoopTracer{}
	ctx := context.Background()
	got, span := tracer.StartSpan(ctx, "test_span")

	assert.Equal(t, ctx, got)
	_, ok := span.(*NoopSpan)
	assert.True(t, ok, "Should return a NoopSpan")

	span.SetTag("tag", "value")
	span.Finish()
}

func TestOpenTelemetryTracer(t *testing.T) {
	tracer := NewOpenTelemetryTracer(noop.NewTracerProvider().Tracer("test"))

	ctx, span := tracer.StartSpan(context.Background(), "appid.api.authenticate")
	otelSpan, ok := span.(*OpenTelemetrySpan)
	require.True(t, ok, "Should return an OpenTelemetrySpan")
	assert.Equal(t, otelSpan.span, trace.SpanFromContext(ctx), "the span should be carried by the returned context")

	span.SetTag("outcome", "failure")
	span.SetTag("error", "expiredToken")
	span.SetTag("status", 401)
	span.Finish()
}
