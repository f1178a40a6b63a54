package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/mergematrix/internal/config"
	obsmetrics "github.com/smallbiznis/mergematrix/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyGenerations = "mergematrix:ratelimit:generations:%s"
	keyRecords     = "mergematrix:ratelimit:records:%s"
)

var ErrRateLimited = errors.New("rate_limited")

// Scope names the policy applied to a route.
type Scope string

const (
	ScopeGenerations Scope = "generations"
	ScopeRecords     Scope = "records"
)

type bucket interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error)
}

type Limiter struct {
	bucket   bucket
	policies *config.RateLimitConfigHolder
	metrics  *obsmetrics.Metrics
	log      *zap.Logger
}

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Policies  *config.RateLimitConfigHolder
	Log       *zap.Logger
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

// NewLimiter returns nil when rate limiting is disabled.
func NewLimiter(p Params) (*Limiter, error) {
	limitCfg := p.Config.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return newLimiter(NewTokenBucket(client), p.Policies, p.Metrics, p.Log), nil
}

func newLimiter(b bucket, policies *config.RateLimitConfigHolder, metrics *obsmetrics.Metrics, log *zap.Logger) *Limiter {
	return &Limiter{
		bucket:   b,
		policies: policies,
		metrics:  metrics,
		log:      log.Named("ratelimit"),
	}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow takes one token from the client's bucket for scope. Redis failures
// fail open.
func (l *Limiter) Allow(ctx context.Context, scope Scope, clientKey, endpoint string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}

	policy, key := l.policyFor(scope, strings.TrimSpace(clientKey))
	result, err := l.bucket.Allow(ctx, key, policy.Rate, policy.Burst)
	if err != nil {
		l.log.Warn("rate limiter unavailable, allowing request",
			zap.String("scope", string(scope)),
			zap.Error(err),
		)
		return &RateLimitResult{Allowed: true}, nil
	}

	if !result.Allowed {
		l.metrics.RecordRateLimitDenied(ctx, endpoint, "bucket_empty")
		return result, ErrRateLimited
	}
	l.metrics.RecordRateLimitAllowed(ctx, endpoint)
	return result, nil
}

func (l *Limiter) policyFor(scope Scope, clientKey string) (config.RateLimitPolicy, string) {
	policies := l.policies.Get()
	if scope == ScopeGenerations {
		return policies.Generations, fmt.Sprintf(keyGenerations, clientKey)
	}
	return policies.Records, fmt.Sprintf(keyRecords, clientKey)
}
