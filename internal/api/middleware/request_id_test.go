package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/rkreddybogati/scalr/pkg/correlation"
)

func requestIDRig() (*gin.Engine, *http.Request) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	return r, req
}

func TestRequestIDHonorsUpstreamHeader(t *testing.T) {
	r, req := requestIDRig()

	var got string
	r.GET("/health", func(c *gin.Context) {
		got = c.GetString("request_id")
		assert.Equal(t, got, correlation.RequestID(c.Request.Context()))
		c.Status(http.StatusOK)
	})

	req.Header.Set("X-Request-Id", "upstream-id")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "upstream-id", got)
	assert.Equal(t, "upstream-id", w.Header().Get("X-Request-Id"))
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	r, req := requestIDRig()

	var got string
	r.GET("/health", func(c *gin.Context) {
		got = c.GetString("request_id")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.NotEmpty(t, got)
	assert.Len(t, got, 26)
	assert.Equal(t, got, w.Header().Get("X-Request-Id"))
}

func TestRequestIDSeedsRemoteSpan(t *testing.T) {
	r, req := requestIDRig()

	var span trace.SpanContext
	r.GET("/health", func(c *gin.Context) {
		span = trace.SpanContextFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.True(t, span.IsValid())
	assert.True(t, span.IsRemote())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", span.TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", span.SpanID().String())
}

func TestRequestIDIgnoresMalformedTraceparent(t *testing.T) {
	r, req := requestIDRig()

	var span trace.SpanContext
	r.GET("/health", func(c *gin.Context) {
		span = trace.SpanContextFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req.Header.Set("traceparent", "garbage")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.False(t, span.IsValid())
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}
