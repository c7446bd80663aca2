package profile

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewMemoryRepository builds an in-memory profile store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{profiles: make(map[string]Profile)}
}

func (r *memoryRepository) Create(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.profiles[userID]; exists {
		return nil
	}
	now := time.Now().UTC()
	r.profiles[userID] = Profile{UserID: userID, CreatedAt: now, UpdatedAt: now}
	return nil
}

func (r *memoryRepository) Update(_ context.Context, userID string, fields Fields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return ErrNotFound
	}
	fields.apply(&p)
	p.UpdatedAt = time.Now().UTC()
	r.profiles[userID] = p
	return nil
}

func (r *memoryRepository) Get(_ context.Context, userID string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[userID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}
