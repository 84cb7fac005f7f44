package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrEmptyDSN is returned when no connection string is configured.
var ErrEmptyDSN = errors.New("database DSN is empty")

// Open opens a Postgres connection using the given DSN. Caller must call Close when done.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, ErrEmptyDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenWithRetry calls Open with exponential backoff until it succeeds, ctx is done
// or maxElapsed passes. Used at startup when the database may still be coming up.
func OpenWithRetry(ctx context.Context, dsn string, maxElapsed time.Duration) (*sql.DB, error) {
	if dsn == "" {
		return nil, ErrEmptyDSN
	}
	return backoff.Retry(ctx, func() (*sql.DB, error) {
		return Open(dsn)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxElapsedTime(maxElapsed))
}
