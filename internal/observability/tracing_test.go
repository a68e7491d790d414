package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

// A disabled provider still hands out working noop spans so call sites need
// no conditionals.
func TestStartSpanDisabledProvider(t *testing.T) {
	tp, err := NewTracerProvider(TracingConfig{})
	require.NoError(t, err)

	ctx, span := tp.StartSpan(context.Background(), "test.op",
		attribute.String("key", "value"))
	require.NotNil(t, span)
	assert.NotNil(t, ctx)
	span.End()

	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestStartSpanNilProvider(t *testing.T) {
	var tp *TracerProvider

	_, span := tp.StartSpan(context.Background(), "test.op")
	require.NotNil(t, span)
	span.End()

	assert.NotNil(t, tp.Tracer())
	assert.NoError(t, tp.Shutdown(context.Background()))
}
