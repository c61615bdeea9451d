// Package sqlite provides a SQLite-backed user store.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/warden/warden/internal/model"
	"github.com/warden/warden/internal/repository"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store persists users in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &Store{sqlDB: sqlDB, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.sqlDB, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

const userColumns = `id, email, username, full_name, hashed_password,
	is_active, is_verified, created_at, updated_at`

// FindByEmail returns the user with exactly this email.
func (s *Store) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findOne(ctx, "email", email)
}

// FindByUsername returns the user with exactly this username.
func (s *Store) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findOne(ctx, "username", username)
}

// FindByID returns the user with this id.
func (s *Store) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return s.findOne(ctx, "id", id)
}

func (s *Store) findOne(ctx context.Context, column string, value any) (*model.User, error) {
	// column is always one of the literals above.
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ?`
	user, err := scanUser(s.sqlDB.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by %s: %w", column, err)
	}
	return user, nil
}

// Insert creates a user. Uniqueness violations return
// *repository.ConflictError.
func (s *Store) Insert(ctx context.Context, nu *model.NewUser) (*model.User, error) {
	now := toMillis(s.now())
	query := `
		INSERT INTO users (email, username, full_name, hashed_password, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING ` + userColumns

	user, err := scanUser(s.sqlDB.QueryRowContext(ctx, query,
		nu.Email, nu.Username, nu.FullName, nu.HashedPassword, now, now,
	))
	if err != nil {
		if ce := conflictFromSQLite(err); ce != nil {
			return nil, ce
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// Update writes the profile columns of user in one statement. The active and
// verified flags are left as stored.
func (s *Store) Update(ctx context.Context, user *model.User) (*model.User, error) {
	query := `
		UPDATE users
		SET email = ?, username = ?, full_name = ?, hashed_password = ?,
			updated_at = ?
		WHERE id = ?
		RETURNING ` + userColumns

	updated, err := scanUser(s.sqlDB.QueryRowContext(ctx, query,
		user.Email, user.Username, user.FullName, user.HashedPassword,
		toMillis(s.now()), user.ID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		if ce := conflictFromSQLite(err); ce != nil {
			return nil, ce
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return updated, nil
}

// SetActive flips the active flag. Used by admin tooling and tests.
func (s *Store) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, toMillis(s.now()), id)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u                  model.User
		created, updated   int64
		isActive, verified bool
	)
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.FullName,
		&u.HashedPassword,
		&isActive,
		&verified,
		&created,
		&updated,
	); err != nil {
		return nil, err
	}
	u.IsActive = isActive
	u.IsVerified = verified
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return &u, nil
}

// conflictFromSQLite maps a UNIQUE constraint failure to a ConflictError.
// SQLite reports the offending column only in the message text
// ("UNIQUE constraint failed: users.email").
func conflictFromSQLite(err error) *repository.ConflictError {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.Code() != sqlite3lib.SQLITE_CONSTRAINT_UNIQUE {
		return nil
	}
	msg := sqliteErr.Error()
	switch {
	case strings.Contains(msg, "users.email"):
		return &repository.ConflictError{Key: repository.KeyEmail, Err: err}
	case strings.Contains(msg, "users.username"):
		return &repository.ConflictError{Key: repository.KeyUsername, Err: err}
	}
	return nil
}
