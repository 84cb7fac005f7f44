package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"auth-service/internal/security"
	"auth-service/internal/user/domain"
)

type queries struct {
	insert string
	get    string
}

// sqlRepository implements Repository on database/sql. Postgres and SQLite differ only in query text.
type sqlRepository struct {
	db       *sql.DB
	q        queries
	verifier PasswordVerifier
}

func (r *sqlRepository) Add(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, r.q.insert, u.Email.String(), u.Password.String(), u.Requires2FA)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (r *sqlRepository) Get(ctx context.Context, email domain.Email) (*domain.User, error) {
	var (
		hash        string
		requires2FA bool
	)
	err := r.db.QueryRowContext(ctx, r.q.get, email.String()).Scan(&hash, &requires2FA)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	digest, err := security.LoadDigest(hash)
	if err != nil {
		return nil, fmt.Errorf("stored digest for %s: %w", email, err)
	}
	return &domain.User{Email: email, Password: digest, Requires2FA: requires2FA}, nil
}

func (r *sqlRepository) Validate(ctx context.Context, email domain.Email, password domain.Password) (*domain.User, error) {
	return validate(ctx, r, r.verifier, email, password)
}
