package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
)

const reservationTTL = 30 * time.Second

// releaseScript deletes the reservation only if it still holds our token, so
// an expired reservation taken over by another request is left alone.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) end return 0`

type guardClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RegistrationGuard reserves a username for the duration of a registration.
// Key format: auth:register:<username>
type RegistrationGuard struct {
	client guardClient
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRegistrationGuard wraps client. Any *redis.Client satisfies guardClient.
func NewRegistrationGuard(client guardClient, log zerolog.Logger) *RegistrationGuard {
	return &RegistrationGuard{client: client, ttl: reservationTTL, log: log}
}

// Acquire reserves username. It returns domain.ErrUserExists when another
// registration holds the reservation.
func (g *RegistrationGuard) Acquire(ctx context.Context, username string) (func(), error) {
	key := g.key(username)
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve username: %w", err)
	}
	if !ok {
		return nil, domain.ErrUserExists
	}

	return func() {
		// The caller's context may already be done once the response is written.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultTimeout)
		defer cancel()
		// An unreleased reservation expires after ttl.
		if err := g.client.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
			g.log.Debug().Err(err).Str("username", username).Msg("release registration reservation failed")
		}
	}, nil
}

func (g *RegistrationGuard) key(username string) string {
	return "auth:register:" + username
}
