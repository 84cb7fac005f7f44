package repository

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"auth-service/internal/mfa"
	"auth-service/internal/mfa/domain"
	userdomain "auth-service/internal/user/domain"
)

// DefaultChallengeTTL is the default MFA challenge expiry (e.g. 10 minutes).
const DefaultChallengeTTL = 10 * time.Minute

var (
	// ErrNotFound is returned when no live challenge exists for the email.
	ErrNotFound = errors.New("two-factor challenge not found")
	// ErrIncorrectCode is returned when the attempt id or code does not match. The challenge is kept.
	ErrIncorrectCode = errors.New("incorrect two-factor code")
)

// Repository stores at most one two-factor challenge per email.
type Repository interface {
	// Issue stores a challenge for email, replacing any existing one.
	Issue(ctx context.Context, email userdomain.Email, attemptID, code string) error
	// VerifyAndConsume atomically checks attemptID and code and deletes the challenge on success.
	// Of several concurrent correct calls at most one succeeds.
	VerifyAndConsume(ctx context.Context, email userdomain.Email, attemptID, code string) error
	// Remove deletes any challenge for email.
	Remove(ctx context.Context, email userdomain.Email) error
	// Get returns the live challenge for email or ErrNotFound.
	Get(ctx context.Context, email userdomain.Email) (*domain.Challenge, error)
}

func matches(c *domain.Challenge, attemptID, code string) bool {
	idOK := subtle.ConstantTimeCompare([]byte(c.AttemptID), []byte(attemptID)) == 1
	codeOK := mfa.OTPEqual(code, c.CodeHash)
	return idOK && codeOK
}
