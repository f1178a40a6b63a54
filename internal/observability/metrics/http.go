package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Operational routes are scraped or polled constantly and would drown the
// API series.
var skippedRoutes = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

type HTTPMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

func NewHTTPMetrics(cfg Config, provider metric.MeterProvider) (*HTTPMetrics, error) {
	meter := provider.Meter(meterName(cfg) + "/http")

	requests, err := meter.Int64Counter("mergematrix_http_requests_total",
		metric.WithDescription("HTTP requests served, by route and status code"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("mergematrix_http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter("mergematrix_http_requests_in_flight")
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{requests: requests, duration: duration, inFlight: inFlight}, nil
}

func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := routeOf(c)
		if _, skip := skippedRoutes[route]; m == nil || skip {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		routeAttr := metric.WithAttributes(FilterAttributes(attribute.String("endpoint", route))...)
		m.inFlight.Add(ctx, 1, routeAttr)
		start := time.Now()

		c.Next()

		m.inFlight.Add(ctx, -1, routeAttr)
		attrs := metric.WithAttributes(FilterAttributes(
			attribute.String("endpoint", route),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		)...)
		m.requests.Add(ctx, 1, attrs)
		m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}

// routeOf uses the registered pattern so unmatched paths share one series.
func routeOf(c *gin.Context) string {
	if route := strings.TrimSpace(c.FullPath()); route != "" {
		return route
	}
	return "unmatched"
}
