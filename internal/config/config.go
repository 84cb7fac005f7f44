// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"auth-service/internal/security"
)

// ErrMissingJWTSecret is returned by RequireJWTSecret when JWT_SECRET is unset or blank.
var ErrMissingJWTSecret = errors.New("config: JWT_SECRET must be set and non-empty")

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address of the JSON auth API (e.g. :3000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC server (health, token-checked services) listens on.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN. When empty the credential store is SQLite (SQLITE_PATH) or in-memory.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SQLitePath is the SQLite file used when DATABASE_URL is empty.
	SQLitePath string `mapstructure:"SQLITE_PATH"`
	// RedisURL (redis://...) backs the revocation and 2FA challenge stores. Empty means in-memory.
	RedisURL string `mapstructure:"REDIS_URL"`

	// JWTSecret is the HS256 signing secret. Required by the server.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTIssuer is the iss claim.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTTTL is the session token lifetime (e.g. "600s").
	JWTTTL string `mapstructure:"JWT_TTL"`
	// TwoFACodeTTL is how long an issued 2FA challenge stays valid (e.g. "10m").
	TwoFACodeTTL string `mapstructure:"TWO_FA_CODE_TTL"`

	// HashWorkers is the number of password hashing goroutines; 0 means NumCPU.
	HashWorkers int `mapstructure:"HASH_WORKERS"`
	// HashQueue is the depth of the hashing job queue.
	HashQueue         int `mapstructure:"HASH_QUEUE"`
	Argon2MemoryKiB   int `mapstructure:"ARGON2_MEMORY_KIB"`
	Argon2Iterations  int `mapstructure:"ARGON2_ITERATIONS"`
	Argon2Parallelism int `mapstructure:"ARGON2_PARALLELISM"`

	// PostmarkAuthToken is the Postmark server token. When empty, 2FA emails are only logged (not allowed in production).
	PostmarkAuthToken string `mapstructure:"POSTMARK_AUTH_TOKEN"`
	// PostmarkBaseURL is the Postmark API base URL.
	PostmarkBaseURL string `mapstructure:"POSTMARK_BASE_URL"`
	// EmailSender is the From address of 2FA emails.
	EmailSender string `mapstructure:"EMAIL_SENDER"`
	// EmailTimeout bounds each Postmark request (e.g. "10s").
	EmailTimeout string `mapstructure:"EMAIL_TIMEOUT"`

	// AuthCookieName is the cookie carrying the session token.
	AuthCookieName string `mapstructure:"AUTH_COOKIE_NAME"`

	// OTLPEndpoint is the OTLP gRPC collector (host:port). Empty disables trace and metric export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure disables TLS to the collector.
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	ServiceName  string `mapstructure:"SERVICE_NAME"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
// JWT_SECRET is checked separately by RequireJWTSecret so tools like cmd/migrate run without it.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":3000")
	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "auth-service")
	v.SetDefault("JWT_TTL", "600s")
	v.SetDefault("TWO_FA_CODE_TTL", "10m")
	v.SetDefault("HASH_WORKERS", 0)
	v.SetDefault("HASH_QUEUE", 64)
	v.SetDefault("ARGON2_MEMORY_KIB", 15000)
	v.SetDefault("ARGON2_ITERATIONS", 2)
	v.SetDefault("ARGON2_PARALLELISM", 1)
	v.SetDefault("POSTMARK_AUTH_TOKEN", "")
	v.SetDefault("POSTMARK_BASE_URL", "https://api.postmarkapp.com")
	v.SetDefault("EMAIL_SENDER", "no-reply@auth-service.local")
	v.SetDefault("EMAIL_TIMEOUT", "10s")
	v.SetDefault("AUTH_COOKIE_NAME", "jwt")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("SERVICE_NAME", "auth-service")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}
	if cfg.HashWorkers <= 0 {
		cfg.HashWorkers = runtime.NumCPU()
	}
	if cfg.HashQueue < 0 {
		return nil, errors.New("config: HASH_QUEUE must not be negative")
	}
	if cfg.Argon2MemoryKiB < 8 || cfg.Argon2Iterations < 1 {
		return nil, errors.New("config: ARGON2_MEMORY_KIB must be at least 8 and ARGON2_ITERATIONS at least 1")
	}
	if cfg.Argon2Parallelism < 1 || cfg.Argon2Parallelism > 255 {
		return nil, errors.New("config: ARGON2_PARALLELISM must be between 1 and 255")
	}
	if cfg.AuthCookieName == "" {
		cfg.AuthCookieName = "jwt"
	}
	if cfg.Env == "production" && cfg.PostmarkAuthToken == "" {
		return nil, errors.New("config: POSTMARK_AUTH_TOKEN must be set when APP_ENV=production")
	}

	return &cfg, nil
}

// RequireJWTSecret returns ErrMissingJWTSecret if JWTSecret is empty or whitespace.
func (c *Config) RequireJWTSecret() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// TokenTTL parses JWTTTL as a time.Duration. Returns security.DefaultTokenTTL if unset or invalid.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTTTL)
	if err != nil || d <= 0 {
		return security.DefaultTokenTTL
	}
	return d
}

// ChallengeTTL parses TwoFACodeTTL. Returns 10m if unset or invalid.
func (c *Config) ChallengeTTL() time.Duration {
	d, err := time.ParseDuration(c.TwoFACodeTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// EmailTimeoutDuration parses EmailTimeout. Returns 10s if unset or invalid.
func (c *Config) EmailTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.EmailTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// Argon2Params returns the hashing cost parameters.
func (c *Config) Argon2Params() security.Argon2Params {
	return security.Argon2Params{
		MemoryKiB:   uint32(c.Argon2MemoryKiB),
		Iterations:  uint32(c.Argon2Iterations),
		Parallelism: uint8(c.Argon2Parallelism),
	}
}
