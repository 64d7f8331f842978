package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// AccountRepository defines the persistence boundary for accounts. Usernames
// passed in are already normalized.
type AccountRepository interface {
	Exists(ctx context.Context, username string) (bool, error)
	// Insert stores the account and returns it with the store-assigned ID.
	// Implementations must enforce username uniqueness atomically and report
	// a conflict as domain.ErrUserExists.
	Insert(ctx context.Context, account *domain.Account) (*domain.Account, error)
	// FindByUsername returns domain.ErrUserNotFound when no account matches.
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
}

// RegistrationGuard reserves a username for the duration of one registration.
// Acquire returns domain.ErrUserExists when another request holds the name.
type RegistrationGuard interface {
	Acquire(ctx context.Context, username string) (release func(), err error)
}
