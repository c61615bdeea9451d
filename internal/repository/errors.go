package repository

import (
	"errors"
	"fmt"
)

// ErrUserNotFound is returned by lookups and updates that match no row.
var ErrUserNotFound = errors.New("user not found")

// Key names a uniquely constrained user attribute.
type Key string

// Unique keys on the users table.
const (
	KeyEmail    Key = "email"
	KeyUsername Key = "username"
)

// ConflictError reports a uniqueness violation on Key.
// Stores build it from driver metadata, never from message text seen by callers.
type ConflictError struct {
	Key Key
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists", e.Key)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// AsConflict reports whether err carries a ConflictError and returns its key.
func AsConflict(err error) (Key, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Key, true
	}
	return "", false
}
