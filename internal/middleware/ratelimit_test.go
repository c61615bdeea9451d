package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/warden/warden/internal/cache"
	"github.com/warden/warden/internal/metrics"
)

type fakeLimiter struct {
	mu      sync.Mutex
	allowed int
	calls   map[string]int
	err     error
}

func (f *fakeLimiter) CheckAuthRateLimit(_ context.Context, route, client string, _ float64, burst int) (*cache.RateLimitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	key := route + "|" + client
	f.calls[key]++
	if f.err != nil {
		return &cache.RateLimitResult{Allowed: true, Limit: int64(burst)}, f.err
	}
	n := f.calls[key]
	return &cache.RateLimitResult{
		Allowed:    n <= f.allowed,
		Remaining:  int64(max(f.allowed-n, 0)),
		Limit:      int64(burst),
		RetryAfter: 300 * time.Millisecond,
	}, nil
}

func limited(limiter RateLimiter, recorder metrics.Recorder, enabled bool) http.Handler {
	cfg := RateLimitConfig{
		Logger:  discardLogger(),
		Limiter: limiter,
		Metrics: recorder,
		Enabled: enabled,
		RPS:     1,
		Burst:   2,
	}
	return RateLimitAuth(cfg, "login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRateLimitAuth_RejectsPastBurst(t *testing.T) {
	t.Parallel()

	rec := metrics.NewInMemory()
	h := limited(&fakeLimiter{allowed: 2}, rec, true)

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if i == 2 {
			if w.Header().Get("Retry-After") != "1" {
				t.Errorf("Retry-After = %q, want 1", w.Header().Get("Retry-After"))
			}
			if w.Header().Get("X-RateLimit-Limit") != "2" {
				t.Errorf("X-RateLimit-Limit = %q", w.Header().Get("X-RateLimit-Limit"))
			}
		}
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d status = %d, want %d", i, codes[i], want[i])
		}
	}
	if rec.Snapshot().RateLimited["login"] != 1 {
		t.Errorf("rate limited counter = %v", rec.Snapshot().RateLimited)
	}
}

func TestRateLimitAuth_PerClient(t *testing.T) {
	t.Parallel()

	limiter := &fakeLimiter{allowed: 1}
	h := limited(limiter, nil, true)

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d", addr, w.Code)
		}
	}
	if limiter.calls["login|10.0.0.1"] != 1 || limiter.calls["login|10.0.0.2"] != 1 {
		t.Errorf("port should be stripped from client key: %v", limiter.calls)
	}
}

func TestRateLimitAuth_FailOpen(t *testing.T) {
	t.Parallel()

	h := limited(&fakeLimiter{err: errors.New("redis down")}, nil, true)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when limiter fails", w.Code)
	}
}

func TestRateLimitAuth_Disabled(t *testing.T) {
	t.Parallel()

	limiter := &fakeLimiter{allowed: 0}
	h := limited(limiter, nil, false)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	if w.Code != http.StatusOK || len(limiter.calls) != 0 {
		t.Errorf("disabled limiter should pass through, status=%d calls=%v", w.Code, limiter.calls)
	}

	nilLimiter := limited(nil, nil, true)
	w = httptest.NewRecorder()
	nilLimiter.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	if w.Code != http.StatusOK {
		t.Errorf("nil limiter should pass through, status=%d", w.Code)
	}
}
