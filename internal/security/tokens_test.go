package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestTokenProvider_IssueAndValidate(t *testing.T) {
	p := NewTestTokenProvider().WithClock(FixedClock(epoch))
	s, err := p.Issue("user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if s.Token == "" || s.ID == "" {
		t.Fatal("token or jti empty")
	}
	if !s.ExpiresAt.Equal(epoch.Add(DefaultTokenTTL)) {
		t.Errorf("ExpiresAt want %v, got %v", epoch.Add(DefaultTokenTTL), s.ExpiresAt)
	}
	got, err := p.Validate(s.Token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.Subject != "user@example.com" || got.ID != s.ID {
		t.Errorf("Validate: got subject=%q jti=%q", got.Subject, got.ID)
	}
}

func TestTokenProvider_UniqueIDs(t *testing.T) {
	p := NewTestTokenProvider().WithClock(FixedClock(epoch))
	a, err := p.Issue("user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	b, err := p.Issue("user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if a.ID == b.ID || a.Token == b.Token {
		t.Fatal("tokens issued in the same second must differ")
	}
}

func TestTokenProvider_ExpiryBoundary(t *testing.T) {
	issuer := NewTestTokenProvider().WithClock(FixedClock(epoch))
	s, err := issuer.Issue("user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	justBefore := issuer.WithClock(FixedClock(epoch.Add(DefaultTokenTTL - time.Second)))
	if _, err := justBefore.Validate(s.Token); err != nil {
		t.Fatalf("Validate at TTL-1s: %v", err)
	}
	atExpiry := issuer.WithClock(FixedClock(epoch.Add(DefaultTokenTTL)))
	if _, err := atExpiry.Validate(s.Token); err != ErrTokenExpired {
		t.Fatalf("Validate at TTL: want ErrTokenExpired, got %v", err)
	}
}

func TestTokenProvider_SubSecondIssueLivesFullTTL(t *testing.T) {
	issuedAt := epoch.Add(900 * time.Millisecond)
	issuer := NewTestTokenProvider().WithClock(func() time.Time { return issuedAt })
	s, err := issuer.Issue("user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if s.ExpiresAt.Before(issuedAt.Add(DefaultTokenTTL)) {
		t.Fatalf("ExpiresAt = %v, before issue time + TTL", s.ExpiresAt)
	}

	almost := issuedAt.Add(DefaultTokenTTL - 100*time.Millisecond)
	if _, err := issuer.WithClock(func() time.Time { return almost }).Validate(s.Token); err != nil {
		t.Fatalf("Validate 100ms before TTL: %v", err)
	}
	later := issuedAt.Add(DefaultTokenTTL + time.Second)
	if _, err := issuer.WithClock(func() time.Time { return later }).Validate(s.Token); err != ErrTokenExpired {
		t.Fatalf("Validate past rounded expiry: want ErrTokenExpired, got %v", err)
	}
}

func TestTokenProvider_ValidateInvalid(t *testing.T) {
	p := NewTestTokenProvider()
	s, err := p.Issue("user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	other, err := NewTokenProvider([]byte("another-secret"), "test-issuer", DefaultTokenTTL)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	wrongIssuer, err := NewTokenProvider([]byte(testSecret), "someone-else", DefaultTokenTTL)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	parts := strings.Split(s.Token, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user@example.com",
		ID:        "x",
		Issuer:    "test-issuer",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	cases := []struct {
		name  string
		p     *TokenProvider
		token string
	}{
		{"garbage", p, "invalid-token"},
		{"empty", p, ""},
		{"wrong secret", other, s.Token},
		{"wrong issuer", wrongIssuer, s.Token},
		{"tampered signature", p, tampered},
		{"alg none", p, none},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.p.Validate(tc.token); err != ErrInvalidToken {
				t.Errorf("want ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTokenProvider_MissingExpiry(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "user@example.com",
		ID:      "x",
		Issuer:  "test-issuer",
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewTestTokenProvider().Validate(token); err != ErrInvalidToken {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestNewTokenProvider_EmptySecret(t *testing.T) {
	if _, err := NewTokenProvider(nil, "x", time.Minute); err != ErrEmptySecret {
		t.Fatalf("want ErrEmptySecret, got %v", err)
	}
	p, err := NewTokenProvider([]byte("s"), "x", 0)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	if p.TTL() != DefaultTokenTTL {
		t.Errorf("TTL want %v, got %v", DefaultTokenTTL, p.TTL())
	}
}
