// Package auth provides password hashing, bearer token signing and
// request principal helpers.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Scheme names a password hashing algorithm.
type Scheme string

// Supported password hash schemes.
const (
	SchemeBcrypt   Scheme = "bcrypt"
	SchemeArgon2id Scheme = "argon2id"
)

// ErrUnknownScheme indicates an unsupported hash scheme in configuration.
var ErrUnknownScheme = errors.New("unknown password hash scheme")

// HasherConfig selects the scheme used for new hashes and its work factor.
type HasherConfig struct {
	Scheme     Scheme
	BcryptCost int
	Argon2     Argon2Params
}

// PasswordHasher hashes new passwords with the configured scheme and
// verifies digests of any supported scheme, dispatching on the digest prefix.
// It holds no mutable state and is safe for concurrent use.
type PasswordHasher struct {
	scheme Scheme
	bcrypt *BcryptHasher
	argon2 *Argon2Hasher
	decoy  string
}

// NewPasswordHasher builds a hasher and precomputes its decoy digest.
// Building the decoy runs one hash and one verify per scheme.
func NewPasswordHasher(cfg HasherConfig) (*PasswordHasher, error) {
	if cfg.Scheme == "" {
		cfg.Scheme = SchemeBcrypt
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}
	if cfg.Argon2 == (Argon2Params{}) {
		cfg.Argon2 = DefaultArgon2Params()
	}

	switch cfg.Scheme {
	case SchemeBcrypt, SchemeArgon2id:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, cfg.Scheme)
	}

	bh, err := NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	ah, err := NewArgon2Hasher(cfg.Argon2)
	if err != nil {
		return nil, err
	}

	h := &PasswordHasher{
		scheme: cfg.Scheme,
		bcrypt: bh,
		argon2: ah,
	}

	decoy, err := h.buildDecoy()
	if err != nil {
		return nil, err
	}
	h.decoy = decoy

	return h, nil
}

// Scheme returns the scheme used for new hashes.
func (h *PasswordHasher) Scheme() Scheme {
	return h.scheme
}

// Hash returns a salted digest of password using the configured scheme.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if h.scheme == SchemeArgon2id {
		return h.argon2.Hash(password)
	}
	return h.bcrypt.Hash(password)
}

// Verify reports whether password matches digest.
// Malformed or unrecognized digests never match.
func (h *PasswordHasher) Verify(password, digest string) bool {
	switch {
	case strings.HasPrefix(digest, argon2Prefix):
		return h.argon2.Verify(password, digest)
	case isBcryptDigest(digest):
		return h.bcrypt.Verify(password, digest)
	default:
		return false
	}
}

// buildDecoy hashes a random secret under every supported scheme at the
// configured parameters and keeps the digest that is slowest to verify, so a
// lookup miss costs at least as much as a mismatch against a digest of either
// scheme.
func (h *PasswordHasher) buildDecoy() (string, error) {
	secret := make([]byte, 24)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("generate decoy secret: %w", err)
	}
	plain := base64.RawURLEncoding.EncodeToString(secret)

	bcryptDecoy, err := h.bcrypt.Hash(plain)
	if err != nil {
		return "", fmt.Errorf("hash bcrypt decoy: %w", err)
	}
	argon2Decoy, err := h.argon2.Hash(plain)
	if err != nil {
		return "", fmt.Errorf("hash argon2 decoy: %w", err)
	}

	return pickDecoy([]string{bcryptDecoy, argon2Decoy}, h.verifyCost), nil
}

func (h *PasswordHasher) verifyCost(digest string) time.Duration {
	start := time.Now()
	_ = h.Verify("", digest)
	return time.Since(start)
}

// pickDecoy returns the candidate with the highest cost.
func pickDecoy(candidates []string, cost func(string) time.Duration) string {
	var (
		best     string
		bestCost time.Duration = -1
	)
	for _, c := range candidates {
		if d := cost(c); d > bestCost {
			best, bestCost = c, d
		}
	}
	return best
}

// VerifyDecoy burns one verify's worth of work against a digest nobody knows
// the password for. It always returns false.
func (h *PasswordHasher) VerifyDecoy(password string) bool {
	_ = h.Verify(password, h.decoy)
	return false
}
