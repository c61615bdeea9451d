package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/warden/warden/internal/model"
)

const uniqueViolation = "23505"

// Constraint names declared in migrations/00001_create_users.sql.
var uniqueConstraints = map[string]Key{
	"users_email_unique":    KeyEmail,
	"users_username_unique": KeyUsername,
}

const userColumns = `id, email, username, full_name, hashed_password,
	is_active, is_verified, created_at, updated_at`

// FindByEmail returns the user with exactly this email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, lookupError("email", err)
	}
	return user, nil
}

// FindByUsername returns the user with exactly this username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		return nil, lookupError("username", err)
	}
	return user, nil
}

// FindByID returns the user with this id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, lookupError("id", err)
	}
	return user, nil
}

// Insert creates a user. The database assigns id, timestamps and the
// default flags. Uniqueness violations return *ConflictError.
func (r *Repository) Insert(ctx context.Context, nu *model.NewUser) (*model.User, error) {
	query := `
		INSERT INTO users (email, username, full_name, hashed_password)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query,
		nu.Email,
		nu.Username,
		nu.FullName,
		nu.HashedPassword,
	))
	if err != nil {
		if ce := conflictFromPg(err); ce != nil {
			return nil, ce
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

// Update writes the profile columns of user (email, username, full name and
// password hash) in one statement and refreshes updated_at. The is_active and
// is_verified flags are never written here, so a stale snapshot cannot undo a
// concurrent deactivation. The row is untouched when the statement fails.
func (r *Repository) Update(ctx context.Context, user *model.User) (*model.User, error) {
	query := `
		UPDATE users
		SET email = $2,
			username = $3,
			full_name = $4,
			hashed_password = $5,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	updated, err := scanUser(r.pool.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.FullName,
		user.HashedPassword,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		if ce := conflictFromPg(err); ce != nil {
			return nil, ce
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return updated, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.FullName,
		&u.HashedPassword,
		&u.IsActive,
		&u.IsVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func lookupError(by string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUserNotFound
	}
	return fmt.Errorf("failed to get user by %s: %w", by, err)
}

// conflictFromPg maps a unique_violation on a known constraint to a
// ConflictError. It returns nil for anything else.
func conflictFromPg(err error) *ConflictError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	key, ok := uniqueConstraints[pgErr.ConstraintName]
	if !ok {
		return nil
	}
	return &ConflictError{Key: key, Err: err}
}
