package server

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/mergematrix/internal/observability/logger"
	"github.com/smallbiznis/mergematrix/internal/ratelimit"
	"go.uber.org/zap"
)

const rateLimitReasonClientRate = "client-rate"

// RateLimit takes one token per request from the caller's bucket for scope.
func (s *Server) RateLimit(scope ratelimit.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		endpoint := normalizeRateLimitEndpoint(c)
		ctx := c.Request.Context()

		result, err := s.limiter.Allow(ctx, scope, c.ClientIP(), endpoint)
		if errors.Is(err, ratelimit.ErrRateLimited) {
			logger.FromContext(ctx).Warn("rate limit exceeded",
				zap.String("reason", rateLimitReasonClientRate),
				zap.String("endpoint", endpoint),
			)
			c.Header("Retry-After", retryAfterSeconds(result))
			c.Header("X-Rate-Limited-Reason", rateLimitReasonClientRate)
			AbortWithError(c, err)
			return
		}
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Next()
	}
}

func retryAfterSeconds(result *ratelimit.RateLimitResult) string {
	if result == nil || result.RetryAfter <= 0 {
		return "1"
	}
	return strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds())))
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
