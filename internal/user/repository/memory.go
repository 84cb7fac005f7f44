package repository

import (
	"context"
	"sync"

	"auth-service/internal/user/domain"
)

// MemoryRepository keeps users in a map. Used for development and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	users    map[domain.Email]domain.User
	verifier PasswordVerifier
}

// NewMemoryRepository returns an empty in-memory credential store.
func NewMemoryRepository(verifier PasswordVerifier) *MemoryRepository {
	return &MemoryRepository{users: make(map[domain.Email]domain.User), verifier: verifier}
}

func (r *MemoryRepository) Add(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.Email]; ok {
		return ErrAlreadyExists
	}
	r.users[u.Email] = *u
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, email domain.Email) (*domain.User, error) {
	r.mu.RLock()
	u, ok := r.users[email]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) Validate(ctx context.Context, email domain.Email, password domain.Password) (*domain.User, error) {
	return validate(ctx, r, r.verifier, email, password)
}
