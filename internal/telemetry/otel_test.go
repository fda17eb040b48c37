package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracer_NoEndpoint(t *testing.T) {
	p, err := InitTracer(context.Background(), "order-desk", "")
	require.NoError(t, err)

	_, span := p.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInitTracer_WithEndpoint(t *testing.T) {
	// the exporter connects lazily, so no collector is needed here
	p, err := InitTracer(context.Background(), "order-desk", "localhost:4318")
	require.NoError(t, err)
	_, ok := p.TracerProvider.(*sdktrace.TracerProvider)
	assert.True(t, ok)

	_, span := p.Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
}
