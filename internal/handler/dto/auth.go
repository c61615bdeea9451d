// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"golang.org/x/text/unicode/norm"

	"github.com/warden/warden/internal/model"
)

// TokenTypeBearer is the token_type reported with every issued token.
const TokenTypeBearer = "bearer"

// maxPasswordBytes is bcrypt's input ceiling.
const maxPasswordBytes = 72

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// Normalize trims surrounding whitespace from email and full name and
// NFC-normalizes the full name.
func (r *RegisterRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.FullName = normalizeName(r.FullName)
}

// Validate checks the request shape.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Username, usernameRules()...),
		validation.Field(&r.FullName, fullNameRules()...),
		validation.Field(&r.Password, passwordRules()...),
	)
}

// LoginRequest is the body of POST /auth/login. The password is not
// checked against the strength policy; that would leak the policy to
// credential stuffing.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize trims surrounding whitespace from the email.
func (r *LoginRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

// Validate checks the request shape.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 1024)),
	)
}

// UpdateProfileRequest is the body of PATCH /auth/me. Absent fields are
// left unchanged.
type UpdateProfileRequest struct {
	Email    *string `json:"email,omitempty"`
	Username *string `json:"username,omitempty"`
	FullName *string `json:"full_name,omitempty"`
	Password *string `json:"password,omitempty"`
}

// Normalize applies the same normalization as registration.
func (r *UpdateProfileRequest) Normalize() {
	if r.Email != nil {
		v := strings.TrimSpace(*r.Email)
		r.Email = &v
	}
	if r.FullName != nil {
		v := normalizeName(*r.FullName)
		r.FullName = &v
	}
}

// Validate checks the request shape. Present fields must satisfy the
// registration rules.
func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.NilOrNotEmpty, validation.Length(3, 254), is.Email),
		validation.Field(&r.Username, append([]validation.Rule{validation.NilOrNotEmpty}, usernameRules()[1:]...)...),
		validation.Field(&r.FullName, append([]validation.Rule{validation.NilOrNotEmpty}, fullNameRules()[1:]...)...),
		validation.Field(&r.Password, append([]validation.Rule{validation.NilOrNotEmpty}, passwordRules()[1:]...)...),
	)
}

// Empty reports whether no field was supplied.
func (r UpdateProfileRequest) Empty() bool {
	return r.Email == nil && r.Username == nil && r.FullName == nil && r.Password == nil
}

func usernameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(3, 50),
		validation.Match(usernamePattern).Error("may contain only letters, digits, underscores and hyphens"),
	}
}

func fullNameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.RuneLength(2, 255),
	}
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.RuneLength(8, 0),
		validation.By(passwordStrength),
	}
}

// passwordStrength requires an upper-case letter, a lower-case letter and a
// digit, and rejects input bcrypt would truncate.
func passwordStrength(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	default:
		return errors.New("must be a string")
	}
	if s == "" {
		return nil
	}
	if len(s) > maxPasswordBytes {
		return errors.New("must be at most 72 bytes")
	}

	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return errors.New("must contain at least one uppercase letter")
	case !lower:
		return errors.New("must contain at least one lowercase letter")
	case !digit:
		return errors.New("must contain at least one digit")
	}
	return nil
}

func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// RegisterResponse is returned by POST /auth/register.
type RegisterResponse struct {
	Message     string           `json:"message"`
	User        model.PublicUser `json:"user"`
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
}

// TokenResponse is returned by POST /auth/login.
type TokenResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	User        model.PublicUser `json:"user"`
}

// MessageResponse carries a human-readable acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ServiceHealthResponse is returned by GET /auth/health.
type ServiceHealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// ValidationDetails flattens a validation error into field -> message.
// It returns nil for errors that are not field validation failures.
func ValidationDetails(err error) map[string]string {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return nil
	}
	details := make(map[string]string, len(errs))
	for field, fieldErr := range errs {
		if fieldErr != nil {
			details[field] = fieldErr.Error()
		}
	}
	return details
}
