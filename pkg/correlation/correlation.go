// Package correlation carries the per-request correlation ID through
// context and bridges inbound W3C trace headers onto the request span
// context, so log lines and downstream calls share one identity.
package correlation

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
)

type requestIDKey struct{}

// RequestID fetches the request ID from the context, empty when unset.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(requestIDKey{}).(string); ok {
		return val
	}
	return ""
}

// WithRequestID sets the request ID onto the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// EnsureRequestID guarantees a request ID on the context, generating a
// ULID when missing.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	id := RequestID(ctx)
	if id == "" {
		id = ulid.Make().String()
	}
	return WithRequestID(ctx, id), id
}

// WithRemoteSpan seeds the context with a remote parent span when valid
// trace and span identifiers are provided. Invalid identifiers leave the
// context untouched.
func WithRemoteSpan(ctx context.Context, traceIDHex, spanIDHex string) context.Context {
	if traceIDHex == "" || spanIDHex == "" {
		return ctx
	}

	traceID, err := trace.TraceIDFromHex(traceIDHex)
	if err != nil {
		return ctx
	}
	spanID, err := trace.SpanIDFromHex(spanIDHex)
	if err != nil {
		return ctx
	}

	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	return trace.ContextWithSpanContext(ctx, parent)
}

// ParseTraceparent splits a W3C traceparent header value
// (version-traceid-spanid-flags) into its trace and span IDs. The bool
// reports whether the value has the expected shape; ID validity is left
// to WithRemoteSpan.
func ParseTraceparent(header string) (traceID, spanID string, ok bool) {
	parts := strings.Split(header, "-")
	if len(parts) != 4 || len(parts[1]) != 32 || len(parts[2]) != 16 {
		return "", "", false
	}
	return parts[1], parts[2], true
}
