package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/rkreddybogati/scalr/pkg/correlation"
)

const (
	requestIDHeader   = "X-Request-Id"
	traceparentHeader = "traceparent"
)

// RequestID assigns every request a ULID, honoring one supplied by an
// upstream proxy, and echoes it back on the response. When the caller
// sends a W3C traceparent header, its trace context is seeded onto the
// request context as the remote parent span.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if tp := c.GetHeader(traceparentHeader); tp != "" {
			if traceID, spanID, ok := correlation.ParseTraceparent(tp); ok {
				ctx = correlation.WithRemoteSpan(ctx, traceID, spanID)
			}
		}

		ctx, id := correlation.EnsureRequestID(
			correlation.WithRequestID(ctx, c.GetHeader(requestIDHeader)))

		c.Request = c.Request.WithContext(ctx)
		c.Set("request_id", id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}
