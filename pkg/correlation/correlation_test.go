package correlation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))

	assert.Empty(t, RequestID(context.Background()))
	assert.Empty(t, RequestID(nil))
}

func TestEnsureRequestIDGenerates(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	require.NotEmpty(t, id)
	assert.Len(t, id, 26)
	assert.Equal(t, id, RequestID(ctx))

	ctx2, id2 := EnsureRequestID(ctx)
	assert.Equal(t, id, id2)
	assert.Equal(t, ctx, ctx2)
}

func TestParseTraceparent(t *testing.T) {
	traceID, spanID, ok := ParseTraceparent("00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	require.True(t, ok)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", traceID)
	assert.Equal(t, "00f067aa0ba902b7", spanID)

	for _, bad := range []string{
		"",
		"garbage",
		"00-short-00f067aa0ba902b7-01",
		"00-4bf92f3577b34da6a3ce929d0e0e4736-short-01",
		"00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7",
	} {
		_, _, ok := ParseTraceparent(bad)
		assert.False(t, ok, "value %q", bad)
	}
}

func TestWithRemoteSpan(t *testing.T) {
	ctx := WithRemoteSpan(context.Background(),
		"4bf92f3577b34da6a3ce929d0e0e4736", "00f067aa0ba902b7")

	span := trace.SpanContextFromContext(ctx)
	require.True(t, span.IsValid())
	assert.True(t, span.IsRemote())
	assert.True(t, span.IsSampled())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", span.TraceID().String())
}

func TestWithRemoteSpanInvalidHex(t *testing.T) {
	base := context.Background()
	assert.Equal(t, base, WithRemoteSpan(base, "zz", "00f067aa0ba902b7"))
	assert.Equal(t, base, WithRemoteSpan(base, "4bf92f3577b34da6a3ce929d0e0e4736", "zz"))
	assert.Equal(t, base, WithRemoteSpan(base, "", ""))
}
