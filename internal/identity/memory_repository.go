package identity

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account // keyed by id
}

// NewMemoryRepository builds an in-memory account store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{accounts: make(map[string]Account)}
}

func (r *memoryRepository) Create(_ context.Context, account Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.accounts {
		if a.Email == account.Email {
			return errors.New("account exists")
		}
	}
	r.accounts[account.ID] = account
	return nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (Account, error) {
	return r.find(func(a Account) bool { return a.Email == email })
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Account, error) {
	return r.find(func(a Account) bool { return a.ID == id })
}

func (r *memoryRepository) FindByConfirmationToken(_ context.Context, token string) (Account, error) {
	if token == "" {
		return Account{}, ErrNotFound
	}
	return r.find(func(a Account) bool { return a.ConfirmationToken == token })
}

func (r *memoryRepository) MarkConfirmed(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(a *Account) {
		t := at.UTC()
		a.ConfirmedAt = &t
		a.ConfirmationToken = ""
	})
}

func (r *memoryRepository) UpdateTokenVersion(_ context.Context, id string, version int) error {
	return r.update(id, func(a *Account) { a.TokenVersion = version })
}

func (r *memoryRepository) TouchLastSignIn(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(a *Account) {
		t := at.UTC()
		a.LastSignInAt = &t
	})
}

func (r *memoryRepository) find(match func(Account) bool) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if match(a) {
			return a, nil
		}
	}
	return Account{}, ErrNotFound
}

func (r *memoryRepository) update(id string, fn func(*Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	fn(&a)
	r.accounts[id] = a
	return nil
}
