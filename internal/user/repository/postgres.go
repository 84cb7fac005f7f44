package repository

import (
	"database/sql"
)

// PostgresRepository stores users in the Postgres users table.
type PostgresRepository struct {
	sqlRepository
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB, verifier PasswordVerifier) *PostgresRepository {
	return &PostgresRepository{sqlRepository{
		db: db,
		q: queries{
			insert: `INSERT INTO users (email, password_hash, requires_2fa) VALUES ($1, $2, $3) ON CONFLICT (email) DO NOTHING`,
			get:    `SELECT password_hash, requires_2fa FROM users WHERE email = $1`,
		},
		verifier: verifier,
	}}
}
