// Package repository stores revoked session token identities until the tokens would have expired anyway.
package repository

import (
	"context"
	"time"
)

// Repository is the revocation store keyed by token ID (jti).
type Repository interface {
	// Revoke marks id revoked until expiresAt. Revoking an already expired token is a no-op.
	Revoke(ctx context.Context, id string, expiresAt time.Time) error
	// IsRevoked reports whether id was revoked and the record has not expired.
	IsRevoked(ctx context.Context, id string) (bool, error)
}
