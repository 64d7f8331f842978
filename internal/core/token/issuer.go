// Package token issues and validates HS512-signed JWT access tokens.
//
// Claims are readable by anyone holding the token, so only the account
// identifier and username are embedded.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// MinSecretLength is the HS512 output size in bytes. Shorter keys are rejected.
const MinSecretLength = 64

// DefaultTTL is the validity window applied when none is configured.
const DefaultTTL = 24 * time.Hour

var (
	ErrMissingSigningKey = errors.New("token signing secret is not configured")
	ErrWeakSigningKey    = fmt.Errorf("token signing secret must be at least %d bytes", MinSecretLength)
)

var signingMethod = jwt.SigningMethodHS512

// claims is the wire representation, using the short nameid/unique_name
// claim names existing clients already read.
type claims struct {
	AccountID string `json:"nameid"`
	Username  string `json:"unique_name"`
	jwt.RegisteredClaims
}

// Option customises an Issuer.
type Option func(*Issuer)

// WithClock overrides the time source used for issuing and validation.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// Issuer signs and validates tokens with a single server-held secret.
type Issuer struct {
	key    []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewIssuer validates the secret and returns an Issuer. A missing or short
// secret is a configuration error and should abort startup.
func NewIssuer(secret []byte, ttl time.Duration, opts ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSigningKey
	}
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSigningKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	i := &Issuer{key: key, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}

	i.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	)
	return i, nil
}

// TTL returns the validity window applied to issued tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue returns a signed token for the account, expiring TTL after now.
func (i *Issuer) Issue(accountID, username string) (string, error) {
	now := i.now()
	c := claims{
		AccountID: accountID,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, c).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate checks signature, algorithm and expiry and returns the claims.
// Every failure is reported as domain.ErrInvalidToken.
func (i *Issuer) Validate(tokenString string) (*domain.Claims, error) {
	var c claims
	tkn, err := i.parser.ParseWithClaims(tokenString, &c, func(*jwt.Token) (any, error) {
		return i.key, nil
	})
	if err != nil || !tkn.Valid || c.AccountID == "" || c.IssuedAt == nil {
		return nil, domain.ErrInvalidToken
	}

	return &domain.Claims{
		AccountID: c.AccountID,
		Username:  c.Username,
		IssuedAt:  c.IssuedAt.Time,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
