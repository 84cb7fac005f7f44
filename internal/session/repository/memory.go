package repository

import (
	"context"
	"sync"
	"time"
)

const sweepInterval = time.Minute

// MemoryRepository keeps revoked IDs in a map. Expired entries are ignored on read
// and removed by a periodic sweep on write.
type MemoryRepository struct {
	mu        sync.RWMutex
	revoked   map[string]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{revoked: make(map[string]time.Time), now: time.Now}
}

// WithClock replaces the time source. For tests.
func (r *MemoryRepository) WithClock(now func() time.Time) *MemoryRepository {
	r.now = now
	return r
}

func (r *MemoryRepository) Revoke(ctx context.Context, id string, expiresAt time.Time) error {
	now := r.now()
	if !expiresAt.After(now) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if now.Sub(r.lastSweep) >= sweepInterval {
		for k, exp := range r.revoked {
			if !exp.After(now) {
				delete(r.revoked, k)
			}
		}
		r.lastSweep = now
	}
	if cur, ok := r.revoked[id]; !ok || expiresAt.After(cur) {
		r.revoked[id] = expiresAt
	}
	return nil
}

func (r *MemoryRepository) IsRevoked(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	exp, ok := r.revoked[id]
	r.mu.RUnlock()
	return ok && exp.After(r.now()), nil
}

// Len returns the number of stored records, including expired ones not yet swept.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.revoked)
}
