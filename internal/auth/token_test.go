package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()
	c, err := NewTokenCodec(testSecret, "HS256", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenCodec failed: %v", err)
	}
	return c
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	token, err := c.Issue("alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	sub, ok := c.Verify(token)
	if !ok {
		t.Fatal("fresh token should verify")
	}
	if sub != "alice" {
		t.Errorf("expected subject alice, got %q", sub)
	}
}

func TestTokenCodec_Claims(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := newTestCodec(t).WithClock(func() time.Time { return now })

	token, err := c.Issue("alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims := &jwt.RegisteredClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		t.Fatalf("ParseUnverified failed: %v", err)
	}
	if claims.Subject != "alice" {
		t.Errorf("sub = %q", claims.Subject)
	}
	if !claims.IssuedAt.Time.Equal(now) {
		t.Errorf("iat = %v, want %v", claims.IssuedAt.Time, now)
	}
	if !claims.ExpiresAt.Time.Equal(now.Add(30 * time.Minute)) {
		t.Errorf("exp = %v, want %v", claims.ExpiresAt.Time, now.Add(30*time.Minute))
	}
	if len(claims.ID) != 26 {
		t.Errorf("jti should be a ULID, got %q", claims.ID)
	}
}

func TestTokenCodec_Expiry(t *testing.T) {
	t.Parallel()

	issued := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	issuer := newTestCodec(t).WithClock(func() time.Time { return issued })
	token, err := issuer.Issue("alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	before := newTestCodec(t).WithClock(func() time.Time { return issued.Add(29 * time.Minute) })
	if _, ok := before.Verify(token); !ok {
		t.Error("token should verify before expiry")
	}

	after := newTestCodec(t).WithClock(func() time.Time { return issued.Add(31 * time.Minute) })
	if _, ok := after.Verify(token); ok {
		t.Error("token should not verify after expiry")
	}
}

func TestTokenCodec_Tampered(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	token, err := c.Issue("alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	for i := range token {
		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]
		if _, ok := c.Verify(tampered); ok {
			t.Errorf("token altered at position %d should not verify", i)
		}
	}
}

func TestTokenCodec_Rejects(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)

	otherKey, _ := NewTokenCodec([]byte("ffffffffffffffffffffffffffffffff"), "HS256", time.Minute)
	foreign, _ := otherKey.Issue("alice")

	otherAlg, _ := NewTokenCodec(testSecret, "HS512", time.Minute)
	wrongAlg, _ := otherAlg.Issue("alice")

	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "alice",
	}).SignedString(testSecret)

	noSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testSecret)

	cases := map[string]string{
		"empty":         "",
		"garbage":       "not.a.token",
		"no dots":       "abcdef",
		"foreign key":   foreign,
		"wrong alg":     wrongAlg,
		"alg none":      unsigned,
		"missing exp":   noExp,
		"missing sub":   noSub,
		"trailing junk": foreign + "x",
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if sub, ok := c.Verify(token); ok || sub != "" {
				t.Errorf("Verify should fail, got sub=%q ok=%v", sub, ok)
			}
		})
	}
}

func TestTokenCodec_DistinctTokens(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	a, _ := c.Issue("alice")
	b, _ := c.Issue("alice")
	if a == b {
		t.Error("tokens issued back to back should differ by jti")
	}
}

func TestNewTokenCodec_Errors(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenCodec([]byte("short"), "HS256", time.Minute); !errors.Is(err, ErrSecretTooShort) {
		t.Errorf("expected ErrSecretTooShort, got %v", err)
	}
	for _, alg := range []string{"RS256", "none", "ES256", "bogus"} {
		if _, err := NewTokenCodec(testSecret, alg, time.Minute); !errors.Is(err, ErrUnsupportedAlgorithm) {
			t.Errorf("%s: expected ErrUnsupportedAlgorithm, got %v", alg, err)
		}
	}
	if _, err := NewTokenCodec(testSecret, "HS256", -time.Second); !errors.Is(err, ErrInvalidTTL) {
		t.Errorf("expected ErrInvalidTTL, got %v", err)
	}
}

func TestNewTokenCodec_Defaults(t *testing.T) {
	t.Parallel()

	c, err := NewTokenCodec(testSecret, "", 0)
	if err != nil {
		t.Fatalf("NewTokenCodec failed: %v", err)
	}
	if c.Algorithm() != "HS256" {
		t.Errorf("default algorithm = %s", c.Algorithm())
	}
	if c.TTL() != DefaultTokenTTL {
		t.Errorf("default ttl = %v", c.TTL())
	}
}

func TestTokenCodec_IssueRejectsEmptySubject(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	if _, err := c.Issue(""); err == nil {
		t.Error("empty subject should be rejected")
	}
	if _, err := c.IssueWithTTL("alice", 0); !errors.Is(err, ErrInvalidTTL) {
		t.Errorf("expected ErrInvalidTTL, got %v", err)
	}
	if strings.Count(mustIssue(t, c, "alice"), ".") != 2 {
		t.Error("token should have three segments")
	}
}

func mustIssue(t *testing.T, c *TokenCodec, sub string) string {
	t.Helper()
	tok, err := c.Issue(sub)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	return tok
}
