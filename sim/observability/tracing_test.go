package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracing_ExportsPhaseSpans(t *testing.T) {
	// GIVEN tracing enabled with an in-memory writer
	var buf bytes.Buffer
	ctx := context.Background()
	shutdown, err := InitTracing(ctx, TracingConfig{Enabled: true, ServiceName: "test", Writer: &buf})
	require.NoError(t, err)

	// WHEN a phase span is recorded and the provider shut down
	_, span := StartPhase(ctx, "collecting", 3)
	span.End()
	require.NoError(t, shutdown(ctx))

	// THEN the exported JSON carries the span name and episode attribute
	out := buf.String()
	assert.Contains(t, out, `"Name": "collecting"`)
	assert.Contains(t, out, `"episode"`)
}

func TestInitTracing_DisabledIsNoop(t *testing.T) {
	ctx := context.Background()
	shutdown, err := InitTracing(ctx, TracingConfig{})
	require.NoError(t, err)

	_, span := StartPhase(ctx, "simulating", 1)
	span.End()

	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, shutdown(ctx))
	ShutdownWithTimeout(ctx, nil)
}
