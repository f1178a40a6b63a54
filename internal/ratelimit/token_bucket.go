package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// The script keeps tokens in thousandths so fractional refills survive the
// integer conversion Redis applies to Lua return values.
//
// KEYS[1] bucket hash; ARGV rate (tokens/s), burst, ttl (ms).
// Returns {allowed, remaining_millitokens, retry_after_ms, now_ms}.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2]) * 1000
local ttl = tonumber(ARGV[3])

local clock = redis.call("TIME")
local now = clock[1] * 1000 + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "milli", "ts")
local milli = tonumber(state[1]) or capacity
local ts = tonumber(state[2]) or now

local elapsed = math.max(0, now - ts)
milli = math.min(capacity, milli + elapsed * rate)

local allowed = 0
local retry = 0
if milli >= 1000 then
  allowed = 1
  milli = milli - 1000
else
  retry = math.ceil((1000 - milli) / rate)
end

redis.call("HSET", KEYS[1], "milli", milli, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, math.floor(milli), retry, now}
`

var (
	errBucketNotConfigured = errors.New("token bucket not configured")
	errBucketKeyEmpty      = errors.New("token bucket key is empty")
	errBucketPolicy        = errors.New("token bucket rate and burst must be positive")
	errBucketResponse      = errors.New("unexpected token bucket response")
)

// TokenBucket is a Redis backed bucket shared by every replica.
type TokenBucket struct {
	client redis.Scripter
	script *redis.Script
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

func NewTokenBucket(client redis.Scripter) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
	}
}

func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	switch {
	case t == nil || t.client == nil:
		return nil, errBucketNotConfigured
	case key == "":
		return nil, errBucketKeyEmpty
	case rate <= 0 || burst <= 0:
		return nil, errBucketPolicy
	}

	ttl := bucketTTL(rate, burst)
	values, err := t.script.Run(ctx, t.client, []string{key}, rate, burst, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, err
	}
	return parseBucketReply(values, burst)
}

func parseBucketReply(values []int64, burst int) (*RateLimitResult, error) {
	if len(values) != 4 {
		return nil, errBucketResponse
	}

	retryAfter := time.Duration(values[2]) * time.Millisecond
	return &RateLimitResult{
		Allowed:    values[0] == 1,
		Limit:      burst,
		Remaining:  int(values[1] / 1000),
		ResetTime:  time.UnixMilli(values[3]).Add(retryAfter),
		RetryAfter: retryAfter,
	}, nil
}

// bucketTTL lets idle buckets expire after twice the time a full refill takes.
func bucketTTL(rate float64, burst int) time.Duration {
	seconds := math.Ceil(float64(burst) / rate * 2)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}
