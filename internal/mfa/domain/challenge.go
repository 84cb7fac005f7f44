package domain

import (
	"time"

	userdomain "auth-service/internal/user/domain"
)

// Challenge is a pending two-factor login for one email. At most one exists per email;
// issuing a new one replaces it. Only the SHA-256 hash of the code is kept.
type Challenge struct {
	Email     userdomain.Email
	AttemptID string
	CodeHash  string
	ExpiresAt time.Time
}

// Expired reports whether the challenge is no longer usable at now.
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
