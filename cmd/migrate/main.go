// migrate applies the embedded SQL migrations to Postgres (DATABASE_URL) or SQLite (SQLITE_PATH).
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"auth-service/internal/config"
	"auth-service/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	url := cfg.DatabaseURL
	if url == "" && cfg.SQLitePath != "" {
		url = migrate.SQLiteURL(cfg.SQLitePath)
	}
	if url == "" {
		fmt.Fprintln(os.Stderr, "no database configured; set DATABASE_URL or SQLITE_PATH")
		os.Exit(1)
	}

	if err := migrate.Run(url, *direction); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return
		}
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
