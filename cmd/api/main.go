// Package main is the entrypoint for the Warden API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/warden/warden/internal/auth"
	"github.com/warden/warden/internal/cache"
	"github.com/warden/warden/internal/config"
	"github.com/warden/warden/internal/handler"
	"github.com/warden/warden/internal/metrics"
	"github.com/warden/warden/internal/middleware"
	"github.com/warden/warden/internal/repository"
	"github.com/warden/warden/internal/repository/sqlite"
	"github.com/warden/warden/internal/server"
	"github.com/warden/warden/internal/service"
)

// credentialStore is what the API needs from either store driver.
type credentialStore interface {
	service.UserStore
	handler.HealthChecker
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Built before any connection is opened so a bad setting leaks nothing.
	hasher, err := auth.NewPasswordHasher(cfg.HasherConfig())
	if err != nil {
		return err
	}
	codec, err := auth.NewTokenCodec([]byte(cfg.JWTSecret), cfg.JWTAlgorithm, cfg.AccessTokenTTL)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Redis is optional; without it login and registration are not throttled.
	var (
		limiter     middleware.RateLimiter
		redisHealth handler.HealthChecker
		cacheClient *cache.Cache
	)
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			_ = closeStore(context.Background())
			logger.Error("failed to connect to Redis",
				slog.String("error", config.SanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", config.RedactURL(cfg.RedisURL)),
			)
			return errors.New("redis unavailable")
		}
		limiter = cacheClient
		redisHealth = cacheClient
		logger.Info("connected to Redis")
	} else {
		logger.Warn("REDIS_URL not set; auth rate limiting disabled")
	}

	recorder := metrics.NewInMemory()
	authService := service.NewAuthService(store, hasher, codec, recorder, logger)

	router := server.NewRouter(server.RouterConfig{
		Logger:   logger,
		Auth:     handler.NewAuthHandler(authService, logger),
		Health:   handler.NewHealthHandler(store, cfg.StoreDriver, redisHealth, logger),
		Metrics:  handler.NewMetricsHandler(recorder),
		Sessions: authService,
		Limiter:  limiter,
		Recorder: recorder,
		RateLimit: server.RateLimitSettings{
			Enabled: cfg.RateLimitAuthEnabled,
			RPS:     cfg.RateLimitAuthRPS,
			Burst:   cfg.RateLimitAuthBurst,
		},
		IsDevelopment:      cfg.IsDevelopment(),
		CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	srv := server.New(router, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown(cfg.StoreDriver, closeStore)
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error { return cacheClient.Close() })
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"store", cfg.StoreDriver,
		"hash_scheme", hasher.Scheme(),
		"token_algorithm", codec.Algorithm(),
		"token_ttl", codec.TTL(),
	)

	return srv.Run(ctx)
}

// openStore connects the configured credential store and applies migrations
// when enabled. The SQLite store always migrates on open.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (credentialStore, server.ShutdownFunc, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("opened sqlite store", "path", cfg.SQLitePath)
		return store, func(context.Context) error { return store.Close() }, nil

	default:
		repo, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database",
				slog.String("error", config.SanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", config.RedactURL(cfg.DatabaseURL)),
			)
			return nil, nil, errors.New("database unavailable")
		}
		logger.Info("connected to database")

		if cfg.MigrateOnStart {
			applied, err := repo.Migrate(ctx)
			if err != nil {
				repo.Close()
				return nil, nil, err
			}
			logger.Info("migrations applied", "versions", applied)
		}
		return repo, func(context.Context) error { repo.Close(); return nil }, nil
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "warden")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
