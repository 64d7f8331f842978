package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// fallbackDummyCredential is used only if the hasher cannot produce a dummy
// credential at runtime. It never matches any password.
//
//nolint:gosec // G101: not a credential.
const fallbackDummyCredential = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// DefaultGuardWait bounds how long Register waits for another request's
// reservation on the same username to be released.
const DefaultGuardWait = time.Second

const guardPollInterval = 50 * time.Millisecond

// AuthService implements registration and login.
type AuthService struct {
	repo   ports.AccountRepository
	hasher ports.CredentialHasher
	tokens ports.TokenIssuer
	guard  ports.RegistrationGuard
	log    zerolog.Logger
	now    func() time.Time

	// guardWait is the longest Register polls a held reservation.
	guardWait time.Duration

	dummyOnce       sync.Once
	dummyCredential string
}

// Option customises an AuthService.
type Option func(*AuthService)

// WithRegistrationGuard adds a reservation step in front of the store's
// uniqueness check.
func WithRegistrationGuard(g ports.RegistrationGuard) Option {
	return func(s *AuthService) { s.guard = g }
}

// WithGuardWait overrides DefaultGuardWait. Zero means a single attempt.
func WithGuardWait(d time.Duration) Option {
	return func(s *AuthService) { s.guardWait = d }
}

// WithLogger sets the service logger. The default discards output.
func WithLogger(log zerolog.Logger) Option {
	return func(s *AuthService) { s.log = log }
}

func NewAuthService(repo ports.AccountRepository, hasher ports.CredentialHasher, tokens ports.TokenIssuer, opts ...Option) *AuthService {
	s := &AuthService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		log:    zerolog.Nop(),
		now:    time.Now,

		guardWait: DefaultGuardWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and returns its identifier. No token is issued.
func (s *AuthService) Register(ctx context.Context, rawUsername, password string) (string, error) {
	username := NormalizeUsername(rawUsername)
	if username == "" {
		return "", domain.ErrInvalidUsername
	}
	if err := checkPasswordPolicy(password); err != nil {
		return "", err
	}

	if s.guard != nil {
		release, err := s.reserve(ctx, username)
		switch {
		case err == nil:
			defer release()
		case errors.Is(err, domain.ErrUserExists):
			// The holder may still fail; the store decides.
			s.log.Debug().Str("username", username).Msg("registration reservation still held, relying on store constraint")
		case ctx.Err() != nil:
			return "", fmt.Errorf("register: %w", ctx.Err())
		default:
			s.log.Warn().Err(err).Str("username", username).Msg("registration guard unavailable, relying on store constraint")
		}
	}

	// Checked before hashing so duplicates cost nothing.
	exists, err := s.repo.Exists(ctx, username)
	if err != nil {
		return "", fmt.Errorf("register: check username: %w", err)
	}
	if exists {
		return "", domain.ErrUserExists
	}

	credential, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return "", fmt.Errorf("register: hash password: %w", err)
	}

	created, err := s.repo.Insert(ctx, &domain.Account{
		Username:   username,
		Credential: credential,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return "", domain.ErrUserExists
		}
		return "", fmt.Errorf("register: insert account: %w", err)
	}

	s.log.Info().Str("username", username).Str("account_id", created.ID).Msg("account registered")
	return created.ID, nil
}

// reserve acquires the username reservation, polling while another request
// holds it for at most guardWait.
func (s *AuthService) reserve(ctx context.Context, username string) (func(), error) {
	var release func()
	b := retry.WithMaxDuration(s.guardWait, retry.NewConstant(guardPollInterval))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		var err error
		release, err = s.guard.Acquire(ctx, username)
		if errors.Is(err, domain.ErrUserExists) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return release, nil
}

// Login verifies the credentials and returns a signed access token. Unknown
// usernames and wrong passwords both yield domain.ErrInvalidCredentials after
// an equivalent amount of hashing work.
func (s *AuthService) Login(ctx context.Context, rawUsername, password string) (string, error) {
	username := NormalizeUsername(rawUsername)
	if username == "" || password == "" {
		return "", domain.ErrInvalidCredentials
	}

	account, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return "", fmt.Errorf("login: find account: %w", err)
		}
		// Burn the same hashing cost as a real verification.
		_, _ = s.hasher.Verify(ctx, password, s.dummy(ctx))
		s.log.Info().Str("username", username).Msg("login rejected")
		return "", domain.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(ctx, password, account.Credential)
	if err != nil {
		return "", fmt.Errorf("login: verify credential for account %s: %w", account.ID, err)
	}
	if !ok {
		s.log.Info().Str("username", username).Msg("login rejected")
		return "", domain.ErrInvalidCredentials
	}

	tkn, err := s.tokens.Issue(account.ID, account.Username)
	if err != nil {
		return "", fmt.Errorf("login: issue token: %w", err)
	}
	return tkn, nil
}

// Warm precomputes the credential used on the unknown-username path so the
// first failed login does not pay for an extra hash.
func (s *AuthService) Warm(ctx context.Context) {
	s.dummy(ctx)
}

// dummy returns a credential produced by the configured hasher for a random
// password, so verifying against it costs the same as a real account.
func (s *AuthService) dummy(ctx context.Context) string {
	s.dummyOnce.Do(func() {
		s.dummyCredential = fallbackDummyCredential

		buf := make([]byte, 12)
		if _, err := rand.Read(buf); err != nil {
			return
		}
		cred, err := s.hasher.Hash(context.WithoutCancel(ctx), base64.RawStdEncoding.EncodeToString(buf))
		if err != nil {
			s.log.Warn().Err(err).Msg("could not build dummy credential, using fallback")
			return
		}
		s.dummyCredential = cred
	})
	return s.dummyCredential
}
