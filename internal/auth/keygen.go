package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"
)

// DefaultSecretBytes is the size of a generated signing secret.
const DefaultSecretBytes = 48

// ErrWeakSecret indicates a signing secret that fails strength checks.
var ErrWeakSecret = errors.New("signing secret is too weak")

// GenerateSigningSecret returns n random bytes encoded as unpadded
// URL-safe base64, suitable for JWT_SECRET.
func GenerateSigningSecret(n int) (string, error) {
	if n < MinSecretBytes {
		return "", fmt.Errorf("%w: %d bytes requested, need %d", ErrWeakSecret, n, MinSecretBytes)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ValidateSigningSecret rejects secrets that are short or made of a
// single repeated character.
func ValidateSigningSecret(secret string) error {
	if len(secret) < MinSecretBytes {
		return fmt.Errorf("%w: %d bytes, need %d", ErrWeakSecret, len(secret), MinSecretBytes)
	}
	first, _ := utf8.DecodeRuneInString(secret)
	for _, r := range secret {
		if r != first {
			return nil
		}
	}
	return fmt.Errorf("%w: single repeated character", ErrWeakSecret)
}
