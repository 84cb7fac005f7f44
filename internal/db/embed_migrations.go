package db

import "embed"

// MigrationFS embeds SQL migration files from internal/db/migrations.
// The same files are applied to Postgres and SQLite by the migrate runner.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
