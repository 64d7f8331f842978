// Package memory provides a process-local account store for tests and
// single-instance development runs.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// AccountRepository implements ports.AccountRepository with a mutex-guarded map.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
	seq      int64
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[string]domain.Account)}
}

func (r *AccountRepository) Exists(ctx context.Context, username string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.accounts[username]
	return ok, nil
}

// Insert adds the account if the username is free. Check and write happen
// under one lock.
func (r *AccountRepository) Insert(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.Username]; exists {
		return nil, domain.ErrUserExists
	}
	r.seq++
	stored := *account
	stored.ID = strconv.FormatInt(r.seq, 10)
	r.accounts[stored.Username] = stored

	return &stored, nil
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &a, nil
}

// Ping always succeeds; it lets the store take part in readiness checks.
func (r *AccountRepository) Ping(context.Context) error { return nil }
