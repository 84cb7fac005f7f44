package domain

import (
	"errors"
	"strings"
	"unicode/utf8"

	"auth-service/internal/security"
)

// MinPasswordLength is the minimum number of characters of a raw password.
const MinPasswordLength = security.MinPasswordLength

var (
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrInvalidPassword = errors.New("password must be at least 8 characters")
)

// Email is a validated email address. The zero value is not valid; use ParseEmail.
// Emails compare by value and can be used as map keys.
type Email struct {
	addr string
}

// ParseEmail trims and lower-cases s and checks that it has exactly one "@"
// with a non-empty local part and a non-empty domain.
func ParseEmail(s string) (Email, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return Email{}, ErrInvalidEmail
	}
	return Email{addr: s}, nil
}

// MustParseEmail is ParseEmail that panics on error. For constants and tests.
func MustParseEmail(s string) Email {
	e, err := ParseEmail(s)
	if err != nil {
		panic(err)
	}
	return e
}

func (e Email) String() string { return e.addr }

// IsZero reports whether e was never parsed.
func (e Email) IsZero() bool { return e.addr == "" }

// Password is a raw password that passed the length check. It is never persisted.
type Password struct {
	secret string
}

func ParsePassword(s string) (Password, error) {
	if utf8.RuneCountInString(s) < MinPasswordLength {
		return Password{}, ErrInvalidPassword
	}
	return Password{secret: s}, nil
}

// Expose returns the raw secret for hashing or verification.
func (p Password) Expose() string { return p.secret }

// String hides the secret from fmt and log output.
func (p Password) String() string { return "[redacted]" }

// User is the credential record. One User per Email.
type User struct {
	Email       Email
	Password    security.Digest
	Requires2FA bool
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email.IsZero() {
		return errors.New("email is required")
	}
	if u.Password.IsZero() {
		return errors.New("password digest is required")
	}
	return nil
}
