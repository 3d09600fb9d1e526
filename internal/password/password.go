// Package password hashes and verifies credentials with Argon2id.
//
// Hashes are self-describing PHC strings:
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<key_b64>
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var errInvalidHash = errors.New("invalid password hash")

// Params are the Argon2id cost parameters used for new hashes.
type Params struct {
	Time       uint32
	MemoryKiB  uint32
	Threads    uint8
	SaltLength uint32
	KeyLength  uint32
}

// DefaultParams follow the RFC 9106 second recommended option.
var DefaultParams = Params{
	Time:       3,
	MemoryKiB:  64 * 1024,
	Threads:    2,
	SaltLength: 16,
	KeyLength:  32,
}

// Hasher produces and checks Argon2id password hashes.
type Hasher struct {
	params Params
}

// NewHasher creates a Hasher. Zero fields in params fall back to DefaultParams.
func NewHasher(params Params) *Hasher {
	if params.Time == 0 {
		params.Time = DefaultParams.Time
	}
	if params.MemoryKiB == 0 {
		params.MemoryKiB = DefaultParams.MemoryKiB
	}
	if params.Threads == 0 {
		params.Threads = DefaultParams.Threads
	}
	if params.SaltLength == 0 {
		params.SaltLength = DefaultParams.SaltLength
	}
	if params.KeyLength == 0 {
		params.KeyLength = DefaultParams.KeyLength
	}
	return &Hasher{params: params}
}

// Hash returns the encoded hash of plaintext with a fresh random salt.
func (h *Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, h.params.Time, h.params.MemoryKiB, h.params.Threads, h.params.KeyLength)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKiB,
		h.params.Time,
		h.params.Threads,
		b64.EncodeToString(salt),
		b64.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches encoded. Malformed or unsupported
// hashes never match.
func (h *Hasher) Verify(plaintext, encoded string) bool {
	params, salt, expected, err := decode(encoded)
	if err != nil {
		return false
	}
	if !h.withinBounds(params) {
		return false
	}

	key := argon2.IDKey([]byte(plaintext), salt, params.Time, params.MemoryKiB, params.Threads, params.KeyLength)

	return subtle.ConstantTimeCompare(key, expected) == 1
}

// withinBounds rejects stored parameters far above the configured cost so a
// tampered hash cannot be used to exhaust memory.
func (h *Hasher) withinBounds(got Params) bool {
	if got.MemoryKiB > h.params.MemoryKiB*2 || got.Time > h.params.Time*2 || got.Threads > h.params.Threads*2 {
		return false
	}
	if got.SaltLength < 8 || got.SaltLength > 64 {
		return false
	}
	if got.KeyLength < 16 || got.KeyLength > 128 {
		return false
	}
	return true
}

func decode(encoded string) (Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Params{}, nil, nil, errInvalidHash
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return Params{}, nil, nil, errInvalidHash
	}

	var mem, iter, par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iter, &par); err != nil {
		return Params{}, nil, nil, errInvalidHash
	}
	if mem == 0 || iter == 0 || par == 0 || par > 255 {
		return Params{}, nil, nil, errInvalidHash
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, errInvalidHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return Params{}, nil, nil, errInvalidHash
	}

	return Params{
		Time:       iter,
		MemoryKiB:  mem,
		Threads:    uint8(par),
		SaltLength: uint32(len(salt)),
		KeyLength:  uint32(len(key)),
	}, salt, key, nil
}
