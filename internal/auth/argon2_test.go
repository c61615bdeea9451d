package auth

import (
	"errors"
	"strings"
	"testing"
)

func fastArgon2Params() Argon2Params {
	return Argon2Params{Time: 1, MemoryKB: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}
}

func TestArgon2Hasher_Format(t *testing.T) {
	t.Parallel()

	h, err := NewArgon2Hasher(DefaultArgon2Params())
	if err != nil {
		t.Fatalf("NewArgon2Hasher failed: %v", err)
	}

	digest, err := h.Hash("Secret123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
	parts := strings.Split(digest, "$")
	if len(parts) != 6 {
		t.Fatalf("Digest should have 6 parts, got: %d", len(parts))
	}
	if parts[1] != "argon2id" {
		t.Errorf("Expected argon2id algorithm, got: %s", parts[1])
	}
	if parts[2] != "v=19" {
		t.Errorf("Expected v=19, got: %s", parts[2])
	}
	if parts[3] != "m=65536,t=3,p=4" {
		t.Errorf("Expected m=65536,t=3,p=4, got: %s", parts[3])
	}
}

func TestArgon2Hasher_RoundTrip(t *testing.T) {
	t.Parallel()

	h, err := NewArgon2Hasher(fastArgon2Params())
	if err != nil {
		t.Fatalf("NewArgon2Hasher failed: %v", err)
	}

	d1, _ := h.Hash("Secret123")
	d2, _ := h.Hash("Secret123")
	if d1 == d2 {
		t.Error("Same password should produce different digests due to random salt")
	}
	if !h.Verify("Secret123", d1) || !h.Verify("Secret123", d2) {
		t.Error("Both digests should verify")
	}
	if h.Verify("Secret124", d1) {
		t.Error("Wrong password should not verify")
	}
	if h.Verify("", d1) {
		t.Error("Empty password should not verify")
	}
}

func TestArgon2Hasher_VerifiesForeignParams(t *testing.T) {
	t.Parallel()

	old, _ := NewArgon2Hasher(fastArgon2Params())
	digest, err := old.Hash("Secret123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	current, _ := NewArgon2Hasher(DefaultArgon2Params())
	if !current.Verify("Secret123", digest) {
		t.Error("Digest should verify using the parameters embedded in it")
	}
}

func TestArgon2Hasher_MalformedDigest(t *testing.T) {
	t.Parallel()

	h, _ := NewArgon2Hasher(fastArgon2Params())

	cases := []struct {
		name   string
		digest string
	}{
		{"empty", ""},
		{"garbage", "not-a-hash"},
		{"wrong algorithm", "$argon2i$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2g"},
		{"wrong version", "$argon2id$v=16$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2g"},
		{"missing parts", "$argon2id$v=19$m=1024,t=1,p=1"},
		{"bad params", "$argon2id$v=19$m=x,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2g"},
		{"zero time", "$argon2id$v=19$m=1024,t=0,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2g"},
		{"huge memory", "$argon2id$v=19$m=99999999,t=1,p=1$c2FsdHNhbHRzYWx0$aGFzaGhhc2g"},
		{"bad salt", "$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaGhhc2g"},
		{"short salt", "$argon2id$v=19$m=1024,t=1,p=1$YWI$aGFzaGhhc2g"},
		{"bad key", "$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0$!!!"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if h.Verify("Secret123", tc.digest) {
				t.Errorf("Verify(%q) should be false", tc.digest)
			}
		})
	}
}

func TestNewArgon2Hasher_InvalidParams(t *testing.T) {
	t.Parallel()

	base := fastArgon2Params()
	cases := map[string]func(p *Argon2Params){
		"zero time":    func(p *Argon2Params) { p.Time = 0 },
		"zero threads": func(p *Argon2Params) { p.Threads = 0 },
		"tiny memory":  func(p *Argon2Params) { p.MemoryKB = 4 },
		"short key":    func(p *Argon2Params) { p.KeyLen = 8 },
		"short salt":   func(p *Argon2Params) { p.SaltLen = 4 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			p := base
			mutate(&p)
			if _, err := NewArgon2Hasher(p); !errors.Is(err, ErrInvalidArgon2Params) {
				t.Errorf("expected ErrInvalidArgon2Params, got %v", err)
			}
		})
	}
}
