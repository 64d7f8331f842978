package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// CredentialHasher turns passwords into stored credentials and checks them.
// Verify reports a wrong password as (false, nil); a malformed credential is
// an error wrapping domain.ErrCorruptCredential.
type CredentialHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, credential string) (bool, error)
}

// TokenIssuer signs access tokens for authenticated accounts.
type TokenIssuer interface {
	Issue(accountID, username string) (string, error)
}

// TokenValidator checks a presented token. Every failure is domain.ErrInvalidToken.
type TokenValidator interface {
	Validate(token string) (*domain.Claims, error)
}
