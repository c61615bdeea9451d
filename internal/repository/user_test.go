package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestConflictFromPg(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		wantKey Key
		wantNil bool
	}{
		{
			name:    "email constraint",
			err:     &pgconn.PgError{Code: "23505", ConstraintName: "users_email_unique"},
			wantKey: KeyEmail,
		},
		{
			name:    "username constraint",
			err:     &pgconn.PgError{Code: "23505", ConstraintName: "users_username_unique"},
			wantKey: KeyUsername,
		},
		{
			name:    "wrapped",
			err:     fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_unique"}),
			wantKey: KeyEmail,
		},
		{
			name:    "unknown constraint",
			err:     &pgconn.PgError{Code: "23505", ConstraintName: "users_pkey"},
			wantNil: true,
		},
		{
			name:    "check violation",
			err:     &pgconn.PgError{Code: "23514", ConstraintName: "users_username_length"},
			wantNil: true,
		},
		{
			name:    "plain error",
			err:     errors.New("duplicate key value violates unique constraint \"users_email_unique\""),
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ce := conflictFromPg(tt.err)
			if tt.wantNil {
				if ce != nil {
					t.Fatalf("expected nil, got %+v", ce)
				}
				return
			}
			if ce == nil {
				t.Fatal("expected ConflictError, got nil")
			}
			if ce.Key != tt.wantKey {
				t.Errorf("key = %s, want %s", ce.Key, tt.wantKey)
			}
			if !errors.Is(ce, tt.err) && errors.Unwrap(ce) != tt.err {
				t.Error("ConflictError should wrap the driver error")
			}
		})
	}
}

func TestAsConflict(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("insert: %w", &ConflictError{Key: KeyUsername})
	key, ok := AsConflict(err)
	if !ok || key != KeyUsername {
		t.Errorf("AsConflict = %s, %v", key, ok)
	}

	if _, ok := AsConflict(ErrUserNotFound); ok {
		t.Error("ErrUserNotFound is not a conflict")
	}
	if got := (&ConflictError{Key: KeyEmail}).Error(); got != "email already exists" {
		t.Errorf("Error() = %q", got)
	}
}
