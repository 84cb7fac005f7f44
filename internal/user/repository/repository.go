package repository

import (
	"context"
	"errors"

	"auth-service/internal/security"
	"auth-service/internal/user/domain"
)

var (
	// ErrAlreadyExists is returned by Add when a user with the same email is stored.
	ErrAlreadyExists = errors.New("user already exists")
	// ErrNotFound is returned when no user has the email.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned by Validate when the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Repository is the credential store: one User per Email.
type Repository interface {
	// Add stores u. Returns ErrAlreadyExists if the email is taken; the stored user is unchanged.
	Add(ctx context.Context, u *domain.User) error
	// Get returns the user for email, or ErrNotFound.
	Get(ctx context.Context, email domain.Email) (*domain.User, error)
	// Validate checks password against the stored digest and returns the user on a match.
	// Returns ErrNotFound or ErrInvalidCredentials; any other error means the check could not be made.
	Validate(ctx context.Context, email domain.Email, password domain.Password) (*domain.User, error)
}

// PasswordVerifier checks a candidate password against a digest. *security.Hasher implements it.
type PasswordVerifier interface {
	Verify(ctx context.Context, d security.Digest, candidate string) error
}

func validate(ctx context.Context, r Repository, v PasswordVerifier, email domain.Email, password domain.Password) (*domain.User, error) {
	u, err := r.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := v.Verify(ctx, u.Password, password.Expose()); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return u, nil
}
