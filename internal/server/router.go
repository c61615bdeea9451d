package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/warden/warden/internal/handler"
	"github.com/warden/warden/internal/metrics"
	"github.com/warden/warden/internal/middleware"
)

// RouterConfig holds the handlers and settings the HTTP surface is built from.
type RouterConfig struct {
	Logger  *slog.Logger
	Auth    *handler.AuthHandler
	Health  *handler.HealthHandler
	Metrics *handler.MetricsHandler

	Sessions middleware.SessionResolver
	// Limiter is nil when Redis is not configured.
	Limiter   middleware.RateLimiter
	Recorder  metrics.Recorder
	RateLimit RateLimitSettings

	IsDevelopment      bool
	CORSAllowedOrigins []string
	MaxRequestBodySize int64
}

// RateLimitSettings configures the per-IP limit on login and registration.
type RateLimitSettings struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger, cfg.IsDevelopment))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))
	r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins}))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
	}

	// Health endpoints (no auth required)
	r.Get("/healthz", cfg.Health.Healthz)
	r.Get("/readyz", cfg.Health.Readyz)
	if cfg.Metrics != nil {
		r.Get("/metrics", cfg.Metrics.Metrics)
	}

	authCfg := middleware.AuthConfig{
		Logger:   cfg.Logger,
		Sessions: cfg.Sessions,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:  cfg.Logger,
		Limiter: cfg.Limiter,
		Metrics: cfg.Recorder,
		Enabled: cfg.RateLimit.Enabled,
		RPS:     cfg.RateLimit.RPS,
		Burst:   cfg.RateLimit.Burst,
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Get("/health", cfg.Auth.Health)
		r.With(middleware.RateLimitAuth(rateLimitCfg, "register")).Post("/register", cfg.Auth.Register)
		r.With(middleware.RateLimitAuth(rateLimitCfg, "login")).Post("/login", cfg.Auth.Login)
		r.Post("/logout", cfg.Auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(authCfg))
			r.Get("/me", cfg.Auth.Me)
			r.With(middleware.RequireActive).Patch("/me", cfg.Auth.UpdateMe)
		})
	})

	// 404 and 405 handlers
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}
