package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("tier", "free"),
		attribute.String("identity", "alice@example.com"),
		attribute.String("endpoint", "/api/generations"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "identity" {
			t.Fatalf("expected identity to be dropped")
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordGenerationAdmitted(context.Background(), "free")
	m.RecordGenerationDenied(context.Background(), "free")
	m.RecordMergeRecordAppended(context.Background(), "sql")
	m.RecordStorageError(context.Background(), "sql", "append")
	m.RecordRateLimitAllowed(context.Background(), "/api/pdfs")
	m.RecordRateLimitDenied(context.Background(), "/api/pdfs", "bucket_empty")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "mergematrix"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.RecordGenerationAdmitted(context.Background(), "premium")
}

func TestGinMiddlewarePassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	httpMetrics, err := NewHTTPMetrics(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	router := gin.New()
	router.Use(GinMiddleware(httpMetrics))
	router.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestGinMiddlewareSkipsOperationalRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	httpMetrics, err := NewHTTPMetrics(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	router := gin.New()
	router.Use(GinMiddleware(httpMetrics))
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
