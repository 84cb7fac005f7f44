// server runs the JSON auth API and the gRPC health/auth server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	grpchealth "google.golang.org/grpc/health"

	"auth-service/internal/config"
	"auth-service/internal/db"
	"auth-service/internal/db/migrate"
	"auth-service/internal/health"
	identityhandler "auth-service/internal/identity/handler"
	identityservice "auth-service/internal/identity/service"
	"auth-service/internal/logging"
	mfarepo "auth-service/internal/mfa/repository"
	"auth-service/internal/notify"
	"auth-service/internal/security"
	"auth-service/internal/server"
	sessionrepo "auth-service/internal/session/repository"
	telemetryotel "auth-service/internal/telemetry/otel"
	userdomain "auth-service/internal/user/domain"
	userrepo "auth-service/internal/user/repository"
)

const (
	connectTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.RequireJWTSecret(); err != nil {
		return err
	}
	logger := logging.NewJSON(os.Stdout, cfg.LogLevel).With("service", cfg.ServiceName)

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "telemetry shutdown", "error", err)
		}
	}()

	pool := security.NewWorkerPool(cfg.HashWorkers, cfg.HashQueue)
	defer pool.Close()
	hasher := security.NewHasher(pool, cfg.Argon2Params())

	tokens, err := security.NewTokenProvider([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenTTL())
	if err != nil {
		return fmt.Errorf("token provider: %w", err)
	}

	pingers := map[string]health.Pinger{}

	users, closeUsers, err := openUserStore(ctx, cfg, hasher, logger, pingers)
	if err != nil {
		return err
	}
	defer closeUsers()

	revocations, challenges, closeRedis, err := openSessionStores(ctx, cfg, logger, pingers)
	if err != nil {
		return err
	}
	defer closeRedis()

	notifier, err := newNotifier(ctx, cfg, logger)
	if err != nil {
		return err
	}

	auth := identityservice.NewAuthService(users, revocations, challenges, notifier, hasher, tokens, logger.With("component", "auth"))

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           identityhandler.NewHandler(auth, cfg.AuthCookieName, cfg.Env == "production", logger.With("component", "http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	healthSrv := grpchealth.NewServer()
	grpcSrv := server.NewGRPCServer(server.Deps{
		Verifier: auth,
		Health:   healthSrv,
		Logger:   logger.With("component", "grpc"),
	})
	checker := health.NewChecker(healthSrv, []string{server.ServiceName}, pingers, logger.With("component", "health"))

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		checker.Run(gctx, health.DefaultInterval)
		return nil
	})
	g.Go(func() error {
		return grpcSrv.Serve(gctx, grpcLis)
	})
	g.Go(func() error {
		logger.Info(gctx, "HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info(context.Background(), "server stopped")
	return err
}

// openUserStore picks Postgres (DATABASE_URL), then SQLite (SQLITE_PATH, migrated on start),
// then memory. Postgres is expected to be migrated by cmd/migrate.
func openUserStore(ctx context.Context, cfg *config.Config, hasher *security.Hasher, logger logging.Logger, pingers map[string]health.Pinger) (identityservice.UserRepo, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		conn, err := db.OpenWithRetry(ctx, cfg.DatabaseURL, connectTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		pingers["postgres"] = health.PingFunc(conn.PingContext)
		logger.Info(ctx, "credential store", "backend", "postgres")
		return userrepo.NewPostgresRepository(conn, hasher), closer(conn), nil
	case cfg.SQLitePath != "":
		if err := migrate.Run(migrate.SQLiteURL(cfg.SQLitePath), "up"); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, nil, fmt.Errorf("sqlite migrate: %w", err)
		}
		conn, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		pingers["sqlite"] = health.PingFunc(conn.PingContext)
		logger.Info(ctx, "credential store", "backend", "sqlite", "path", cfg.SQLitePath)
		return userrepo.NewSQLiteRepository(conn, hasher), closer(conn), nil
	default:
		logger.Warn(ctx, "credential store is in-memory; users are lost on restart")
		return userrepo.NewMemoryRepository(hasher), func() {}, nil
	}
}

func closer(conn *sql.DB) func() {
	return func() { _ = conn.Close() }
}

// openSessionStores returns Redis-backed revocation and challenge stores when REDIS_URL is
// set, otherwise in-memory ones.
func openSessionStores(ctx context.Context, cfg *config.Config, logger logging.Logger, pingers map[string]health.Pinger) (identityservice.RevocationRepo, identityservice.ChallengeRepo, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn(ctx, "revocation and 2FA stores are in-memory")
		return sessionrepo.NewMemoryRepository(), mfarepo.NewMemoryRepository(cfg.ChallengeTTL()), func() {}, nil
	}
	client, err := db.OpenRedis(ctx, cfg.RedisURL, connectTimeout)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("redis: %w", err)
	}
	pingers["redis"] = health.PingFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	logger.Info(ctx, "revocation and 2FA stores", "backend", "redis")
	return sessionrepo.NewRedisRepository(client), mfarepo.NewRedisRepository(client, cfg.ChallengeTTL()), func() { _ = client.Close() }, nil
}

func newNotifier(ctx context.Context, cfg *config.Config, logger logging.Logger) (notify.Notifier, error) {
	if cfg.PostmarkAuthToken == "" {
		logger.Warn(ctx, "POSTMARK_AUTH_TOKEN unset; 2FA emails are logged, not sent")
		return notify.NewLogNotifier(logger.With("component", "notify")), nil
	}
	sender, err := userdomain.ParseEmail(cfg.EmailSender)
	if err != nil {
		return nil, fmt.Errorf("EMAIL_SENDER: %w", err)
	}
	return notify.NewPostmarkClient(cfg.PostmarkAuthToken, cfg.PostmarkBaseURL, sender, cfg.EmailTimeoutDuration()), nil
}
