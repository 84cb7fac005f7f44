package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the session token lifetime.
const DefaultTokenTTL = 600 * time.Second

var (
	// ErrInvalidToken is returned when a token is malformed, has a bad signature or wrong issuer.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for a well-signed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	ErrEmptySecret  = errors.New("token signing secret must not be empty")
)

// SessionClaims holds the JWT claims of a session token. Subject is the email,
// ID (jti) is the token identity used for revocation.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// Session is an issued or validated session token.
type Session struct {
	Token     string
	ID        string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenProvider issues and validates HS256 session tokens with a process-wide secret.
type TokenProvider struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenProvider returns a TokenProvider signing with secret. ttl <= 0 means DefaultTokenTTL.
func NewTokenProvider(secret []byte, issuer string, ttl time.Duration) (*TokenProvider, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &TokenProvider{secret: s, issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// WithClock returns a copy of p that reads time from now. Used by tests.
func (p *TokenProvider) WithClock(now func() time.Time) *TokenProvider {
	cp := *p
	cp.now = now
	return &cp
}

// TTL returns the lifetime of issued tokens.
func (p *TokenProvider) TTL() time.Duration { return p.ttl }

// Issue signs a token for subject that expires TTL from now.
func (p *TokenProvider) Issue(subject string) (*Session, error) {
	jti, err := generateJTI()
	if err != nil {
		return nil, err
	}
	now := p.now().UTC()
	// JWT dates are whole seconds; round up so the token lives at least ttl.
	expiresAt := now.Add(p.ttl).Truncate(time.Second)
	if expiresAt.Before(now.Add(p.ttl)) {
		expiresAt = expiresAt.Add(time.Second)
	}
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subject,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		ID:        jti,
		Subject:   subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Validate checks signature, issuer and expiry. It does not know about revocation.
func (p *TokenProvider) Validate(tokenString string) (*Session, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	s := &Session{
		Token:     tokenString,
		ID:        claims.ID,
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	return s, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
