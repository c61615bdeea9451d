package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2Prefix = "$argon2id$"

// Upper bounds accepted when reading parameters back out of a stored digest,
// so a forged digest cannot make Verify allocate without limit.
const (
	maxArgon2Time    = 16
	maxArgon2Memory  = 1024 * 1024 // 1 GiB in KiB
	maxArgon2KeyLen  = 128
	minArgon2SaltLen = 8
)

// ErrInvalidArgon2Params indicates unusable argon2 configuration.
var ErrInvalidArgon2Params = errors.New("invalid argon2 parameters")

// Argon2Params is the argon2id work factor.
type Argon2Params struct {
	Time     uint32
	MemoryKB uint32
	Threads  uint8
	KeyLen   uint32
	SaltLen  uint32
}

// DefaultArgon2Params returns the OWASP 2024 recommended minimum.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:     3,
		MemoryKB: 64 * 1024,
		Threads:  4,
		KeyLen:   32,
		SaltLen:  16,
	}
}

// Argon2Hasher hashes passwords with argon2id and encodes them in PHC format:
// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
type Argon2Hasher struct {
	params Argon2Params
}

// NewArgon2Hasher validates params and returns a hasher.
func NewArgon2Hasher(params Argon2Params) (*Argon2Hasher, error) {
	switch {
	case params.Time == 0 || params.Time > maxArgon2Time:
		return nil, fmt.Errorf("%w: time=%d", ErrInvalidArgon2Params, params.Time)
	case params.MemoryKB < 8*uint32(params.Threads) || params.MemoryKB > maxArgon2Memory:
		return nil, fmt.Errorf("%w: memory=%d", ErrInvalidArgon2Params, params.MemoryKB)
	case params.Threads == 0:
		return nil, fmt.Errorf("%w: threads=0", ErrInvalidArgon2Params)
	case params.KeyLen < 16 || params.KeyLen > maxArgon2KeyLen:
		return nil, fmt.Errorf("%w: key length=%d", ErrInvalidArgon2Params, params.KeyLen)
	case params.SaltLen < minArgon2SaltLen:
		return nil, fmt.Errorf("%w: salt length=%d", ErrInvalidArgon2Params, params.SaltLen)
	}
	return &Argon2Hasher{params: params}, nil
}

// Hash returns the PHC-encoded argon2id digest of password.
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		h.params.Time,
		h.params.MemoryKB,
		h.params.Threads,
		h.params.KeyLen,
	)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKB,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the digest with the parameters and salt embedded in
// encoded and compares in constant time.
func (h *Argon2Hasher) Verify(password, encoded string) bool {
	parsed, ok := parseArgon2Digest(encoded)
	if !ok {
		return false
	}

	computed := argon2.IDKey(
		[]byte(password),
		parsed.salt,
		parsed.time,
		parsed.memory,
		parsed.threads,
		uint32(len(parsed.key)),
	)

	return subtle.ConstantTimeCompare(computed, parsed.key) == 1
}

type argon2Digest struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func parseArgon2Digest(encoded string) (argon2Digest, bool) {
	var d argon2Digest

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return d, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return d, false
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &d.memory, &d.time, &d.threads); err != nil {
		return d, false
	}
	if d.time == 0 || d.time > maxArgon2Time || d.threads == 0 ||
		d.memory == 0 || d.memory > maxArgon2Memory {
		return d, false
	}

	var err error
	if d.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(d.salt) < minArgon2SaltLen {
		return d, false
	}
	if d.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil ||
		len(d.key) == 0 || len(d.key) > maxArgon2KeyLen {
		return d, false
	}

	return d, true
}
