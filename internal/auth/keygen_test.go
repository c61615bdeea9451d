package auth

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestGenerateSigningSecret(t *testing.T) {
	t.Parallel()

	secret, err := GenerateSigningSecret(DefaultSecretBytes)
	if err != nil {
		t.Fatalf("GenerateSigningSecret failed: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(secret)
	if err != nil {
		t.Fatalf("secret should be raw url base64: %v", err)
	}
	if len(raw) != DefaultSecretBytes {
		t.Errorf("expected %d random bytes, got %d", DefaultSecretBytes, len(raw))
	}
	if err := ValidateSigningSecret(secret); err != nil {
		t.Errorf("generated secret should validate: %v", err)
	}

	other, _ := GenerateSigningSecret(DefaultSecretBytes)
	if secret == other {
		t.Error("two generated secrets should differ")
	}
}

func TestGenerateSigningSecret_TooShort(t *testing.T) {
	t.Parallel()

	if _, err := GenerateSigningSecret(16); !errors.Is(err, ErrWeakSecret) {
		t.Errorf("expected ErrWeakSecret, got %v", err)
	}
}

func TestValidateSigningSecret(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"empty", "", true},
		{"short", "abc", true},
		{"repeated", strings.Repeat("a", 64), true},
		{"ok", "correct-horse-battery-staple-0123456789", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateSigningSecret(tt.secret)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSigningSecret(%q) error = %v, wantErr %v", tt.secret, err, tt.wantErr)
			}
		})
	}
}
