package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// rateLimitAuthPrefix is the Redis key prefix for per-client auth limits.
	rateLimitAuthPrefix = "ratelimit:auth:"
	// rateLimitMinTTL bounds how long an idle bucket is kept.
	rateLimitMinTTL = 10 * time.Second
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	Limit      int64
	RetryAfter time.Duration
}

// tokenBucketScript refills and consumes from a bucket atomically.
// Time is passed in milliseconds so sub-second refill works.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])      -- tokens per second
	local burst = tonumber(ARGV[2])     -- bucket capacity
	local now = tonumber(ARGV[3])       -- current time in ms
	local ttl = tonumber(ARGV[4])       -- key TTL in seconds

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	local elapsed = math.max(0, now - last_update) / 1000
	tokens = math.min(burst, tokens + (elapsed * rate))

	local allowed = 0
	local retry_after_ms = 0

	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after_ms = math.ceil((1 - tokens) / rate * 1000)
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after_ms, math.floor(tokens)}
`)

// CheckAuthRateLimit consumes one token from the bucket for (route, client).
// The client identifier is hashed before it is used as a key.
// On Redis failure the request is allowed and the error is returned so the
// caller can log it.
func (c *Cache) CheckAuthRateLimit(ctx context.Context, route, client string, ratePerSecond float64, burst int) (*RateLimitResult, error) {
	if ratePerSecond <= 0 || burst <= 0 {
		return &RateLimitResult{Allowed: true, Remaining: int64(burst), Limit: int64(burst)}, nil
	}

	key := authBucketKey(route, client)
	ttl := bucketTTL(ratePerSecond, burst)

	result, err := tokenBucketScript.Run(ctx, c.client,
		[]string{key},
		ratePerSecond, burst, c.now().UnixMilli(), int(ttl.Seconds()),
	).Int64Slice()
	if err != nil {
		return &RateLimitResult{Allowed: true, Remaining: int64(burst), Limit: int64(burst)},
			fmt.Errorf("rate limit script: %w", err)
	}

	return parseBucketResult(result, burst)
}

func parseBucketResult(result []int64, burst int) (*RateLimitResult, error) {
	if len(result) != 3 {
		return &RateLimitResult{Allowed: true, Remaining: int64(burst), Limit: int64(burst)},
			fmt.Errorf("rate limit script: unexpected reply length %d", len(result))
	}
	return &RateLimitResult{
		Allowed:    result[0] == 1,
		RetryAfter: time.Duration(result[1]) * time.Millisecond,
		Remaining:  result[2],
		Limit:      int64(burst),
	}, nil
}

// bucketTTL keeps a bucket at least as long as a full refill takes.
func bucketTTL(ratePerSecond float64, burst int) time.Duration {
	refill := time.Duration(math.Ceil(float64(burst)/ratePerSecond)) * time.Second
	if refill < rateLimitMinTTL {
		return rateLimitMinTTL
	}
	return refill
}

func authBucketKey(route, client string) string {
	return rateLimitAuthPrefix + route + ":" + hashIP(client)
}

// hashIP creates a truncated SHA256 hash of an IP address so raw addresses
// are never stored.
func hashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(hash[:8])
}
