package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/mergematrix/internal/observability/context"
	"go.uber.org/zap/zapcore"
)

func TestGinMiddlewareSetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got == "" {
		t.Fatalf("expected X-Request-Id header to be set")
	}
}

func TestGinMiddlewarePropagatesIncomingRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))

	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = obscontext.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got != "req-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
	if seen != "req-123" {
		t.Fatalf("expected request id on context, got %q", seen)
	}
}

func TestRequestLevel(t *testing.T) {
	cases := []struct {
		route  string
		status int
		code   string
		want   zapcore.Level
	}{
		{"/api/generations", http.StatusOK, "", zapcore.InfoLevel},
		{"/api/generations", http.StatusForbidden, "quota_exceeded", zapcore.DebugLevel},
		{"/api/pdfs", http.StatusTooManyRequests, "rate_limited", zapcore.DebugLevel},
		{"/api/pdfs", http.StatusInternalServerError, "storage_unavailable", zapcore.ErrorLevel},
		{"/health", http.StatusServiceUnavailable, "", zapcore.DebugLevel},
	}
	for _, tc := range cases {
		if got := requestLevel(tc.route, tc.status, tc.code); got != tc.want {
			t.Fatalf("requestLevel(%q, %d, %q) = %v, want %v", tc.route, tc.status, tc.code, got, tc.want)
		}
	}
}
