package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"todoapi/internal/adapter/logger"
	"todoapi/internal/core/model/response"
	"todoapi/internal/core/telemetry"
)

func newEngine(middlewares ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(middlewares...)
	router.GET("/api/v1/todos/:id", func(c *gin.Context) {
		c.String(http.StatusOK, GetCurrent(c).RequestID)
	})

	return router
}

func perform(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func TestCurrentMiddleware_GeneratesRequestID(t *testing.T) {
	router := newEngine(CurrentMiddleware())

	rec := perform(router, httptest.NewRequest(http.MethodGet, "/api/v1/todos/1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	assert.Equal(t, rec.Header().Get(HeaderRequestID), rec.Body.String())
}

func TestCurrentMiddleware_EchoesRequestID(t *testing.T) {
	router := newEngine(CurrentMiddleware())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/todos/1", nil)
	req.Header.Set(HeaderRequestID, "req-123")

	rec := perform(router, req)

	assert.Equal(t, "req-123", rec.Header().Get(HeaderRequestID))
	assert.Equal(t, "req-123", rec.Body.String())
}

func TestDeprecatedRoute_Headers(t *testing.T) {
	router := newEngine(DeprecatedRoute("/api/v1/todos"))

	rec := perform(router, httptest.NewRequest(http.MethodGet, "/api/v1/todos/1", nil))

	assert.Equal(t, "true", rec.Header().Get("Deprecation"))
	assert.Equal(t, `</api/v1/todos>; rel="successor-version"`, rec.Header().Get("Link"))
}

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := telemetry.NewAppMetrics(registry)
	limiter := NewRateLimiter(RateLimitConfig{Requests: 2, Window: time.Minute}, logger.NewNop(), metrics)
	router := newEngine(limiter.RateLimitMiddleware())

	for i := 0; i < 2; i++ {
		rec := perform(router, httptest.NewRequest(http.MethodGet, "/api/v1/todos/1", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := perform(router, httptest.NewRequest(http.MethodGet, "/api/v1/todos/2", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusTooManyRequests, body.Status)
	assert.Equal(t, "Too Many Requests", body.Error)
	assert.Equal(t, "/api/v1/todos/2", body.Path)

	expected := `
# HELP rate_limit_hits_total Total number of rate limit hits
# TYPE rate_limit_hits_total counter
rate_limit_hits_total{path="/api/v1/todos/:id"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "rate_limit_hits_total"))
}

func TestRateLimiter_WindowResets(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{Requests: 1, Window: time.Minute}, logger.NewNop(), nil)

	current := time.Now()
	limiter.now = func() time.Time { return current }

	router := newEngine(limiter.RateLimitMiddleware())

	assert.Equal(t, http.StatusOK, perform(router, httptest.NewRequest(http.MethodGet, "/api/v1/todos/1", nil)).Code)
	assert.Equal(t, http.StatusTooManyRequests, perform(router, httptest.NewRequest(http.MethodGet, "/api/v1/todos/1", nil)).Code)

	current = current.Add(61 * time.Second)

	assert.Equal(t, http.StatusOK, perform(router, httptest.NewRequest(http.MethodGet, "/api/v1/todos/1", nil)).Code)
}

func TestHTTPSEnforcer(t *testing.T) {
	router := newEngine(NewHTTPSEnforcer(true, logger.NewNop()).HTTPSMiddleware())

	req := httptest.NewRequest(http.MethodGet, "http://todos.example.com/api/v1/todos/1", nil)
	rec := perform(router, req)

	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "https://todos.example.com/api/v1/todos/1", rec.Header().Get("Location"))

	local := httptest.NewRequest(http.MethodGet, "http://localhost:8080/api/v1/todos/1", nil)
	assert.Equal(t, http.StatusOK, perform(router, local).Code)

	proxied := httptest.NewRequest(http.MethodGet, "http://todos.example.com/api/v1/todos/1", nil)
	proxied.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, http.StatusOK, perform(router, proxied).Code)
}

func TestHTTPSEnforcer_Disabled(t *testing.T) {
	enforcer := NewHTTPSEnforcer(false, logger.NewNop())
	router := newEngine(enforcer.HTTPSMiddleware())

	req := httptest.NewRequest(http.MethodGet, "http://todos.example.com/api/v1/todos/1", nil)

	assert.Equal(t, http.StatusOK, perform(router, req).Code)
}

func TestMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	registry := prometheus.NewRegistry()
	router := newEngine(MetricsMiddleware(telemetry.NewAppMetrics(registry)))

	perform(router, httptest.NewRequest(http.MethodGet, "/api/v1/todos/41", nil))
	perform(router, httptest.NewRequest(http.MethodGet, "/api/v1/todos/42", nil))

	expected := `
# HELP http_requests_total Total number of HTTP requests
# TYPE http_requests_total counter
http_requests_total{method="GET",path="/api/v1/todos/:id",status="200"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "http_requests_total"))
}

func TestLoggingMiddleware_PassesThrough(t *testing.T) {
	router := newEngine(CurrentMiddleware(), LoggingMiddleware(logger.NewNop()))

	rec := perform(router, httptest.NewRequest(http.MethodGet, "/api/v1/todos/1?x=1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoggingMiddleware_AddsTraceID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tracer := sdktrace.NewTracerProvider().Tracer("test")

	var traceID string

	withSpan := func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "request")
		defer span.End()

		traceID = span.SpanContext().TraceID().String()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}

	router := newEngine(CurrentMiddleware(), withSpan, LoggingMiddleware(logger.FromZap(zap.New(core), "todoapi", "")))

	perform(router, httptest.NewRequest(http.MethodGet, "/api/v1/todos/1", nil))

	entries := logs.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, traceID, entries[0].ContextMap()["trace_id"])
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
}
