package config

import (
	"errors"
	"os"
	"runtime"
	"testing"
	"time"

	"auth-service/internal/security"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":3000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":3000")
	}
	if cfg.GRPCAddr != ":8080" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":8080")
	}
	if cfg.JWTIssuer != "auth-service" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "auth-service")
	}
	if cfg.TokenTTL() != 600*time.Second {
		t.Errorf("TokenTTL = %v, want 600s", cfg.TokenTTL())
	}
	if cfg.ChallengeTTL() != 10*time.Minute {
		t.Errorf("ChallengeTTL = %v, want 10m", cfg.ChallengeTTL())
	}
	if cfg.HashWorkers != runtime.NumCPU() {
		t.Errorf("HashWorkers = %d, want NumCPU", cfg.HashWorkers)
	}
	if cfg.HashQueue != 64 {
		t.Errorf("HashQueue = %d, want 64", cfg.HashQueue)
	}
	if got := cfg.Argon2Params(); got.MemoryKiB != 15000 || got.Iterations != 2 || got.Parallelism != 1 {
		t.Errorf("Argon2Params = %+v", got)
	}
	if cfg.AuthCookieName != "jwt" {
		t.Errorf("AuthCookieName = %q, want jwt", cfg.AuthCookieName)
	}
	if cfg.PostmarkBaseURL != "https://api.postmarkapp.com" {
		t.Errorf("PostmarkBaseURL = %q, want default", cfg.PostmarkBaseURL)
	}
	if cfg.EmailTimeoutDuration() != 10*time.Second {
		t.Errorf("EmailTimeoutDuration = %v, want 10s", cfg.EmailTimeoutDuration())
	}
	if cfg.DatabaseURL != "" || cfg.RedisURL != "" {
		t.Error("DATABASE_URL and REDIS_URL should default to empty")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("JWT_TTL", "5m")
	os.Setenv("HASH_WORKERS", "3")
	os.Setenv("ARGON2_MEMORY_KIB", "19456")
	os.Setenv("REDIS_URL", "redis://localhost:6379/0")
	os.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.TokenTTL() != 5*time.Minute {
		t.Errorf("TokenTTL = %v, want 5m", cfg.TokenTTL())
	}
	if cfg.HashWorkers != 3 {
		t.Errorf("HashWorkers = %d, want 3", cfg.HashWorkers)
	}
	if cfg.Argon2MemoryKiB != 19456 {
		t.Errorf("Argon2MemoryKiB = %d, want 19456", cfg.Argon2MemoryKiB)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if !cfg.OTLPInsecure {
		t.Error("OTLPInsecure should be true")
	}
}

func TestLoad_Argon2Range(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
		err   bool
	}{
		{"memory ok", "ARGON2_MEMORY_KIB", "8", false},
		{"memory too low", "ARGON2_MEMORY_KIB", "7", true},
		{"iterations zero", "ARGON2_ITERATIONS", "0", true},
		{"parallelism zero", "ARGON2_PARALLELISM", "0", true},
		{"parallelism too high", "ARGON2_PARALLELISM", "256", true},
		{"parallelism max", "ARGON2_PARALLELISM", "255", false},
		{"negative queue", "HASH_QUEUE", "-1", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv(tc.key, tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				if cfg != nil {
					t.Error("Load should return nil config on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
		})
	}
}

func TestLoad_ProductionRequiresPostmark(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "production")

	if _, err := Load(); err == nil {
		t.Fatal("Load should return error when APP_ENV=production and POSTMARK_AUTH_TOKEN is empty")
	}

	os.Setenv("POSTMARK_AUTH_TOKEN", "server-token")
	if _, err := Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestRequireJWTSecret(t *testing.T) {
	testCases := []struct {
		name   string
		secret string
		err    bool
	}{
		{"unset", "", true},
		{"blank", "   ", true},
		{"set", "s3cr3t", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			if tc.secret != "" {
				os.Setenv("JWT_SECRET", tc.secret)
			}
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			err = cfg.RequireJWTSecret()
			if tc.err && !errors.Is(err, ErrMissingJWTSecret) {
				t.Fatalf("want ErrMissingJWTSecret, got %v", err)
			}
			if !tc.err && err != nil {
				t.Fatalf("RequireJWTSecret: %v", err)
			}
		})
	}
}

func TestTTLFallbacks(t *testing.T) {
	cfg := &Config{JWTTTL: "bogus", TwoFACodeTTL: "-1m", EmailTimeout: ""}
	if cfg.TokenTTL() != security.DefaultTokenTTL {
		t.Errorf("TokenTTL = %v, want default", cfg.TokenTTL())
	}
	if cfg.ChallengeTTL() != 10*time.Minute {
		t.Errorf("ChallengeTTL = %v, want 10m", cfg.ChallengeTTL())
	}
	if cfg.EmailTimeoutDuration() != 10*time.Second {
		t.Errorf("EmailTimeoutDuration = %v, want 10s", cfg.EmailTimeoutDuration())
	}
}
