package mfa

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const otpDigits = 6

var otpSpace = big.NewInt(1_000_000)

// GenerateOTP returns a 6-digit numeric OTP string (e.g. "012345"), uniformly
// distributed over 000000-999999. Uses crypto/rand for randomness.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// ValidOTP reports whether s is exactly six ASCII digits.
func ValidOTP(s string) bool {
	if len(s) != otpDigits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// NewAttemptID returns a random (version 4) UUID identifying one login attempt.
func NewAttemptID() string {
	return uuid.NewString()
}

// ValidAttemptID reports whether s parses as a UUID.
func ValidAttemptID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// HashOTP returns a SHA-256 hash of the OTP string, hex-encoded. Only the hash is stored.
func HashOTP(otp string) string {
	h := sha256.Sum256([]byte(otp))
	return hex.EncodeToString(h[:])
}

// OTPEqual performs constant-time comparison of the provided OTP's hash with the stored hash.
func OTPEqual(providedOTP, storedHash string) bool {
	providedHash := HashOTP(providedOTP)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
