package repository

import (
	"context"
	"sync"
	"time"

	"auth-service/internal/mfa"
	"auth-service/internal/mfa/domain"
	userdomain "auth-service/internal/user/domain"
)

// MemoryRepository keeps challenges in a map. VerifyAndConsume holds the write lock
// across compare and delete.
type MemoryRepository struct {
	mu         sync.RWMutex
	challenges map[userdomain.Email]domain.Challenge
	ttl        time.Duration
	now        func() time.Time
}

// NewMemoryRepository returns an in-memory store; ttl <= 0 means DefaultChallengeTTL.
func NewMemoryRepository(ttl time.Duration) *MemoryRepository {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &MemoryRepository{challenges: make(map[userdomain.Email]domain.Challenge), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source. For tests.
func (r *MemoryRepository) WithClock(now func() time.Time) *MemoryRepository {
	r.now = now
	return r
}

func (r *MemoryRepository) Issue(ctx context.Context, email userdomain.Email, attemptID, code string) error {
	c := domain.Challenge{
		Email:     email,
		AttemptID: attemptID,
		CodeHash:  mfa.HashOTP(code),
		ExpiresAt: r.now().Add(r.ttl),
	}
	r.mu.Lock()
	r.challenges[email] = c
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) VerifyAndConsume(ctx context.Context, email userdomain.Email, attemptID, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[email]
	if !ok {
		return ErrNotFound
	}
	if c.Expired(r.now()) {
		delete(r.challenges, email)
		return ErrNotFound
	}
	if !matches(&c, attemptID, code) {
		return ErrIncorrectCode
	}
	delete(r.challenges, email)
	return nil
}

func (r *MemoryRepository) Remove(ctx context.Context, email userdomain.Email) error {
	r.mu.Lock()
	delete(r.challenges, email)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, email userdomain.Email) (*domain.Challenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.challenges[email]
	if !ok || c.Expired(r.now()) {
		return nil, ErrNotFound
	}
	return &c, nil
}
