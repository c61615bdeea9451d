package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/warden/warden/internal/cache"
	"github.com/warden/warden/internal/metrics"
)

// RateLimiter consumes one request from a client's bucket for a route.
type RateLimiter interface {
	CheckAuthRateLimit(ctx context.Context, route, client string, ratePerSecond float64, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter RateLimiter
	Metrics metrics.Recorder
	Enabled bool
	RPS     float64
	Burst   int
}

// RateLimitAuth throttles credential endpoints per client IP. route names
// the bucket so login and register are limited independently. A nil limiter
// or a Redis failure lets the request through.
func RateLimitAuth(cfg RateLimitConfig, route string) func(http.Handler) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled || cfg.Limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			result, err := cfg.Limiter.CheckAuthRateLimit(r.Context(), route, ip, cfg.RPS, cfg.Burst)
			if err != nil {
				cfg.Logger.ErrorContext(r.Context(), "rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("route", route),
				)
			}
			if result == nil || result.Allowed {
				if result != nil {
					setRateLimitHeaders(w, result)
				}
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, result)
			retry := int(math.Ceil(result.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))

			cfg.Metrics.IncRateLimited(route)
			cfg.Logger.WarnContext(r.Context(), "rate limit exceeded",
				slog.String("route", route),
				slog.Int("retry_after_seconds", retry),
				slog.String("request_id", GetRequestID(r.Context())),
			)
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, result *cache.RateLimitResult) {
	if result.Limit <= 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
}

// clientIP returns the host part of RemoteAddr. Forwarding headers are
// honoured only through chi's RealIP middleware, which rewrites RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
