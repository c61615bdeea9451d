package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/warden/warden/internal/auth"
	"github.com/warden/warden/internal/config"
	"github.com/warden/warden/internal/handler/dto"
	"github.com/warden/warden/internal/metrics"
	"github.com/warden/warden/internal/model"
	"github.com/warden/warden/internal/repository"
	"github.com/warden/warden/internal/repository/sqlite"
	"github.com/warden/warden/internal/service"
)

type output struct {
	User        model.PublicUser `json:"user"`
	AccessToken string           `json:"access_token,omitempty"`
	TokenType   string           `json:"token_type,omitempty"`
}

// Store, hashing and token settings come from the same environment as the
// API server, so bootstrapped users get the server's work factor and TTL.
func main() {
	var (
		email    = flag.String("email", "", "User email")
		username = flag.String("username", "", "Username")
		fullName = flag.String("full-name", "", "Full name")
		lookupID = flag.Int64("lookup-id", 0, "Print the user with this id instead of creating one")
		format   = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fail(err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hasher, err := auth.NewPasswordHasher(cfg.HasherConfig())
	if err != nil {
		fail(err.Error())
	}
	codec, err := auth.NewTokenCodec([]byte(cfg.JWTSecret), cfg.JWTAlgorithm, cfg.AccessTokenTTL)
	if err != nil {
		fail(err.Error())
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		fail(config.SanitizeError(err, cfg.DatabaseURL))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewAuthService(store, hasher, codec, metrics.NewNoop(), logger)

	var out output
	if *lookupID > 0 {
		out, err = lookup(ctx, svc, *lookupID)
	} else {
		out, err = create(ctx, svc, *email, *username, *fullName)
	}
	closeStore()
	if err != nil {
		fail(err.Error())
	}

	switch strings.ToLower(*format) {
	case "plain":
		if out.AccessToken != "" {
			fmt.Println(out.AccessToken)
		} else {
			fmt.Printf("%d %s %s active=%t\n", out.User.ID, out.User.Username, out.User.Email, out.User.IsActive)
		}
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fail("invalid format; use plain or json")
	}
}

func create(ctx context.Context, svc *service.AuthService, email, username, fullName string) (output, error) {
	// The password is read from the environment so it stays out of shell history.
	password := os.Getenv("BOOTSTRAP_PASSWORD")
	if password == "" {
		return output{}, fmt.Errorf("BOOTSTRAP_PASSWORD is required")
	}

	req := dto.RegisterRequest{Email: email, Username: username, FullName: fullName, Password: password}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return output{}, fmt.Errorf("invalid user: %w", err)
	}

	result, err := svc.Register(ctx, service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		return output{}, fmt.Errorf("register user: %w", err)
	}
	return output{
		User:        result.User.ToPublic(),
		AccessToken: result.Token,
		TokenType:   dto.TokenTypeBearer,
	}, nil
}

func lookup(ctx context.Context, svc *service.AuthService, id int64) (output, error) {
	user, err := svc.UserByID(ctx, id)
	if err != nil {
		return output{}, fmt.Errorf("lookup user %d: %w", id, err)
	}
	return output{User: user.ToPublic()}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (service.UserStore, func(), error) {
	if cfg.StoreDriver == config.DriverSQLite {
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.MigrateOnStart {
		if _, err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, nil, err
		}
	}
	return repo, repo.Close, nil
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
