// Package credential implements password hashing for stored account credentials.
package credential

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/auth-service/internal/core/domain"
)

const argon2idPrefix = "$argon2id$"

// Upper bounds applied to parameters read back from stored credentials.
const (
	maxMemoryKiB = 1 << 20 // 1 GiB
	maxTime      = 64
	maxKeyLen    = 1024
	minSaltLen   = 16
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = errors.New("password cannot be empty")

// Params are the argon2id cost parameters.
type Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	SaltLen   uint32
	KeyLen    uint32
}

// DefaultParams follows the OWASP recommendation for argon2id.
var DefaultParams = Params{
	Time:      1,
	MemoryKiB: 64 * 1024,
	Threads:   4,
	SaltLen:   16,
	KeyLen:    32,
}

// Argon2idHasher implements ports.CredentialHasher.
type Argon2idHasher struct {
	params Params
}

// NewArgon2idHasher returns a hasher using p. Salts shorter than 128 bits are raised to 16 bytes.
func NewArgon2idHasher(p Params) *Argon2idHasher {
	if p.SaltLen < minSaltLen {
		p.SaltLen = minSaltLen
	}
	if p.KeyLen == 0 {
		p.KeyLen = DefaultParams.KeyLen
	}
	if p.Threads == 0 {
		p.Threads = 1
	}
	if p.Time == 0 {
		p.Time = 1
	}
	return &Argon2idHasher{params: p}
}

// Hash produces a PHC-formatted argon2id credential:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func (h *Argon2idHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.MemoryKiB, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKiB,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the hash with the parameters embedded in credential and
// compares in constant time. Legacy bcrypt credentials are also accepted.
func (h *Argon2idHasher) Verify(ctx context.Context, password, credential string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if isBcrypt(credential) {
		return verifyBcrypt(password, credential)
	}

	p, salt, expected, err := decode(credential)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Threads, p.KeyLen)
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func decode(credential string) (Params, []byte, []byte, error) {
	var p Params

	if !strings.HasPrefix(credential, argon2idPrefix) {
		return p, nil, nil, corrupt("unsupported algorithm")
	}
	parts := strings.Split(credential, "$")
	if len(parts) != 6 {
		return p, nil, nil, corrupt("expected 6 segments, got %d", len(parts))
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, corrupt("version: %v", err)
	}
	if version != argon2.Version {
		return p, nil, nil, corrupt("unsupported version %d", version)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return p, nil, nil, corrupt("parameters: %v", err)
	}
	if memory == 0 || memory > maxMemoryKiB || time == 0 || time > maxTime || threads == 0 || threads > 255 {
		return p, nil, nil, corrupt("parameters out of range")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, corrupt("salt: %v", err)
	}
	if len(salt) < minSaltLen {
		return p, nil, nil, corrupt("salt too short")
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, corrupt("hash: %v", err)
	}
	if len(key) == 0 || len(key) > maxKeyLen {
		return p, nil, nil, corrupt("invalid hash length %d", len(key))
	}

	p = Params{
		Time:      time,
		MemoryKiB: memory,
		Threads:   uint8(threads),
		SaltLen:   uint32(len(salt)),
		KeyLen:    uint32(len(key)),
	}
	return p, salt, key, nil
}

func isBcrypt(credential string) bool {
	return strings.HasPrefix(credential, "$2a$") ||
		strings.HasPrefix(credential, "$2b$") ||
		strings.HasPrefix(credential, "$2y$")
}

func verifyBcrypt(password, credential string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(credential), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, corrupt("bcrypt: %v", err)
	}
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrCorruptCredential, fmt.Sprintf(format, args...))
}
