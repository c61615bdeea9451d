// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/warden/warden/internal/metrics"
	"github.com/warden/warden/internal/model"
	"github.com/warden/warden/internal/repository"
)

// Service errors. Each flow returns exactly one of these; the underlying
// cause is logged, never returned.
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInactiveAccount    = errors.New("inactive user")
	ErrUnauthenticated    = errors.New("could not validate credentials")
	ErrCreationFailed     = errors.New("user creation failed")
	ErrUpdateFailed       = errors.New("user update failed")
	ErrUnavailable        = errors.New("credential store unavailable")
)

// UserStore is the persistence contract the auth flows depend on.
// Lookups that match nothing return repository.ErrUserNotFound; uniqueness
// violations on Insert and Update return *repository.ConflictError.
// Update writes profile columns only; the active and verified flags stay as
// stored.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	Insert(ctx context.Context, nu *model.NewUser) (*model.User, error)
	Update(ctx context.Context, user *model.User) (*model.User, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
	VerifyDecoy(password string) bool
}

// TokenCodec mints and checks bearer tokens.
type TokenCodec interface {
	Issue(subject string) (string, error)
	Verify(token string) (subject string, ok bool)
}

// AuthService implements registration, login, session resolution and
// profile updates.
type AuthService struct {
	store   UserStore
	hasher  PasswordHasher
	tokens  TokenCodec
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewAuthService creates a new AuthService. A nil recorder or logger is
// replaced by a no-op recorder or slog.Default.
func NewAuthService(store UserStore, hasher PasswordHasher, tokens TokenCodec, recorder metrics.Recorder, logger *slog.Logger) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		store:   store,
		hasher:  hasher,
		tokens:  tokens,
		metrics: recorder,
		logger:  logger.With("component", "auth_service"),
	}
}

// RegisterInput defines input for registering a user. Shape validation
// happens at the transport layer.
type RegisterInput struct {
	Email    string
	Username string
	FullName string
	Password string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a user and issues its first token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := s.ensureAvailable(ctx, in.Email, in.Username); err != nil {
		return nil, err
	}

	digest, err := s.hash(in.Password)
	if err != nil {
		s.logger.ErrorContext(ctx, "hash password", "error", err)
		s.metrics.IncRegistration(metrics.RegisterError)
		return nil, ErrCreationFailed
	}

	user, err := s.store.Insert(ctx, &model.NewUser{
		Email:          in.Email,
		Username:       in.Username,
		FullName:       in.FullName,
		HashedPassword: digest,
	})
	if err != nil {
		// Lost a race with a concurrent registration.
		if key, ok := repository.AsConflict(err); ok {
			return nil, s.registrationConflict(key)
		}
		s.logger.ErrorContext(ctx, "insert user", "error", err)
		s.metrics.IncRegistration(metrics.RegisterError)
		return nil, ErrCreationFailed
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		s.logger.ErrorContext(ctx, "issue token after registration",
			"user_id", user.ID, "error", err)
		s.metrics.IncRegistration(metrics.RegisterError)
		return nil, ErrCreationFailed
	}

	s.metrics.IncRegistration(metrics.RegisterSuccess)
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) ensureAvailable(ctx context.Context, email, username string) error {
	_, err := s.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return s.registrationConflict(repository.KeyEmail)
	case !errors.Is(err, repository.ErrUserNotFound):
		s.logger.ErrorContext(ctx, "lookup email", "error", err)
		s.metrics.IncRegistration(metrics.RegisterError)
		return ErrCreationFailed
	}

	_, err = s.store.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return s.registrationConflict(repository.KeyUsername)
	case !errors.Is(err, repository.ErrUserNotFound):
		s.logger.ErrorContext(ctx, "lookup username", "error", err)
		s.metrics.IncRegistration(metrics.RegisterError)
		return ErrCreationFailed
	}
	return nil
}

func (s *AuthService) registrationConflict(key repository.Key) error {
	if key == repository.KeyUsername {
		s.metrics.IncRegistration(metrics.RegisterUsernameTaken)
		return ErrDuplicateUsername
	}
	s.metrics.IncRegistration(metrics.RegisterEmailTaken)
	return ErrDuplicateEmail
}

// Login authenticates by email and password and issues a token.
// An unknown email and a wrong password are indistinguishable to the
// caller, including in time spent: a miss still pays for one verify.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.VerifyDecoy(password)
			s.loginFailed(ctx, metrics.LoginNotFound)
			return nil, ErrInvalidCredentials
		}
		s.logger.ErrorContext(ctx, "lookup user for login", "error", err)
		s.metrics.IncLogin(metrics.LoginError)
		return nil, ErrUnavailable
	}

	if !s.hasher.Verify(password, user.HashedPassword) {
		s.loginFailed(ctx, metrics.LoginPasswordMismatch)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.loginFailed(ctx, metrics.LoginInactive)
		return nil, ErrInactiveAccount
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		s.logger.ErrorContext(ctx, "issue token", "user_id", user.ID, "error", err)
		s.metrics.IncLogin(metrics.LoginError)
		return nil, ErrUnavailable
	}

	s.metrics.IncLogin(metrics.LoginSuccess)
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, outcome string) {
	s.metrics.IncLogin(outcome)
	s.logger.DebugContext(ctx, "login rejected", "reason", outcome)
}

// ResolveSession maps a bearer token to its user. It does not check
// whether the account is active; see RequireActive.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (*model.User, error) {
	subject, ok := s.tokens.Verify(token)
	if !ok {
		s.metrics.IncSessionResolution(metrics.SessionInvalidToken)
		return nil, ErrUnauthenticated
	}

	user, err := s.store.FindByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncSessionResolution(metrics.SessionUnknownSubject)
			return nil, ErrUnauthenticated
		}
		s.logger.ErrorContext(ctx, "lookup session user", "error", err)
		s.metrics.IncSessionResolution(metrics.SessionError)
		return nil, ErrUnavailable
	}

	s.metrics.IncSessionResolution(metrics.SessionSuccess)
	return user, nil
}

// RequireActive returns ErrInactiveAccount for a deactivated user.
func RequireActive(user *model.User) error {
	if user == nil {
		return ErrUnauthenticated
	}
	if !user.IsActive {
		return ErrInactiveAccount
	}
	return nil
}

// ProfileInput carries optional profile changes. Nil fields are left as is.
type ProfileInput struct {
	Email    *string
	Username *string
	FullName *string
	Password *string
}

// Empty reports whether no change was requested.
func (in ProfileInput) Empty() bool {
	return in.Email == nil && in.Username == nil && in.FullName == nil && in.Password == nil
}

// UpdateProfile applies in to user and persists it in a single write.
// Uniqueness is enforced by the store at commit, so a conflict leaves the
// stored row untouched. Tokens carry the username, so renaming a user
// invalidates tokens issued under the old name.
func (s *AuthService) UpdateProfile(ctx context.Context, user *model.User, in ProfileInput) (*model.User, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if in.Empty() {
		return user, nil
	}

	next := *user
	if in.Email != nil {
		next.Email = *in.Email
	}
	if in.Username != nil {
		next.Username = *in.Username
	}
	if in.FullName != nil {
		next.FullName = *in.FullName
	}
	if in.Password != nil {
		digest, err := s.hash(*in.Password)
		if err != nil {
			s.logger.ErrorContext(ctx, "hash password", "user_id", user.ID, "error", err)
			s.metrics.IncProfileUpdate(metrics.ProfileError)
			return nil, ErrUpdateFailed
		}
		next.HashedPassword = digest
	}

	updated, err := s.store.Update(ctx, &next)
	if err != nil {
		if key, ok := repository.AsConflict(err); ok {
			s.metrics.IncProfileUpdate(metrics.ProfileConflict)
			if key == repository.KeyUsername {
				return nil, ErrDuplicateUsername
			}
			return nil, ErrDuplicateEmail
		}
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncProfileUpdate(metrics.ProfileNotFound)
			return nil, ErrUnauthenticated
		}
		s.logger.ErrorContext(ctx, "update user", "user_id", user.ID, "error", err)
		s.metrics.IncProfileUpdate(metrics.ProfileError)
		return nil, ErrUpdateFailed
	}

	s.metrics.IncProfileUpdate(metrics.ProfileSuccess)
	return updated, nil
}

// UserByID loads a user for admin tooling (scripts/bootstrap-user.go -lookup-id).
func (s *AuthService) UserByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "lookup user by id", "user_id", id, "error", err)
		return nil, ErrUnavailable
	}
	return user, nil
}

func (s *AuthService) hash(password string) (string, error) {
	start := time.Now()
	digest, err := s.hasher.Hash(password)
	s.metrics.ObserveHashDuration(time.Since(start))
	return digest, err
}
