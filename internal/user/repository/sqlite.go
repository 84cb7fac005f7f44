package repository

import (
	"database/sql"
)

// SQLiteRepository stores users in a SQLite users table (single-node deployments).
type SQLiteRepository struct {
	sqlRepository
}

// NewSQLiteRepository returns a user repository backed by a SQLite db opened with db.OpenSQLite.
func NewSQLiteRepository(db *sql.DB, verifier PasswordVerifier) *SQLiteRepository {
	return &SQLiteRepository{sqlRepository{
		db: db,
		q: queries{
			insert: `INSERT INTO users (email, password_hash, requires_2fa) VALUES (?1, ?2, ?3) ON CONFLICT (email) DO NOTHING`,
			get:    `SELECT password_hash, requires_2fa FROM users WHERE email = ?1`,
		},
		verifier: verifier,
	}}
}
