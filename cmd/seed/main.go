// seed inserts development users for local testing.
// Idempotent: users that already exist are left alone.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"auth-service/internal/config"
	"auth-service/internal/db"
	"auth-service/internal/db/migrate"
	"auth-service/internal/security"
	userdomain "auth-service/internal/user/domain"
	userrepo "auth-service/internal/user/repository"
)

const devPassword = "password123"

var devUsers = []struct {
	email       string
	requires2FA bool
}{
	{"dev@example.com", false},
	{"member@example.com", true},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()
	hasher := security.NewHasher(nil, cfg.Argon2Params())

	var repo userrepo.Repository
	switch {
	case cfg.DatabaseURL != "":
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer conn.Close()
		repo = userrepo.NewPostgresRepository(conn, hasher)
	case cfg.SQLitePath != "":
		if err := migrate.Run(migrate.SQLiteURL(cfg.SQLitePath), "up"); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("migrate: %v", err)
		}
		conn, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer conn.Close()
		repo = userrepo.NewSQLiteRepository(conn, hasher)
	default:
		log.Println("DATABASE_URL and SQLITE_PATH are not set; nothing to seed")
		os.Exit(1)
	}

	if err := seed(ctx, repo, hasher); err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Println("Seed completed successfully.")
	for _, u := range devUsers {
		fmt.Printf("Dev login: %s / %s (2FA: %v)\n", u.email, devPassword, u.requires2FA)
	}
}

func seed(ctx context.Context, repo userrepo.Repository, hasher *security.Hasher) error {
	digest, err := hasher.Hash(ctx, devPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	for _, u := range devUsers {
		email, err := userdomain.ParseEmail(u.email)
		if err != nil {
			return err
		}
		err = repo.Add(ctx, &userdomain.User{Email: email, Password: digest, Requires2FA: u.requires2FA})
		switch {
		case errors.Is(err, userrepo.ErrAlreadyExists):
			log.Printf("%s already exists, skipping", u.email)
		case err != nil:
			return fmt.Errorf("add %s: %w", u.email, err)
		}
	}
	return nil
}
