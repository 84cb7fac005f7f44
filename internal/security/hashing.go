package security

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the minimum number of characters Hash accepts.
const MinPasswordLength = 8

var (
	ErrPasswordTooShort = errors.New("password is too short")
	ErrMalformedDigest  = errors.New("malformed password digest")
	ErrPasswordMismatch = errors.New("password does not match digest")
)

// Argon2Params are the argon2id cost parameters. They are embedded in every
// digest, so changing them only affects newly hashed passwords.
type Argon2Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns m=15000 KiB, t=2, p=1 with a 16-byte salt and 32-byte key.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{MemoryKiB: 15000, Iterations: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func (p Argon2Params) withDefaults() Argon2Params {
	d := DefaultArgon2Params()
	if p.MemoryKiB == 0 {
		p.MemoryKiB = d.MemoryKiB
	}
	if p.Iterations == 0 {
		p.Iterations = d.Iterations
	}
	if p.Parallelism == 0 {
		p.Parallelism = d.Parallelism
	}
	if p.SaltLength == 0 {
		p.SaltLength = d.SaltLength
	}
	if p.KeyLength == 0 {
		p.KeyLength = d.KeyLength
	}
	return p
}

type digestKind uint8

const (
	kindArgon2id digestKind = iota + 1
	kindBcrypt
)

// Digest is an irreversible password digest. It can only be obtained from
// Hasher.Hash or LoadDigest; String returns the form to persist.
type Digest struct {
	encoded string
	kind    digestKind
	params  Argon2Params
	salt    []byte
	key     []byte
}

func (d Digest) String() string { return d.encoded }

func (d Digest) IsZero() bool { return d.kind == 0 }

// Equal compares the stored encodings. It is not a password check.
func (d Digest) Equal(other Digest) bool { return d.encoded == other.encoded }

// LoadDigest parses a stored digest without hashing anything. It accepts argon2id
// PHC strings ($argon2id$v=19$m=..,t=..,p=..$salt$key) and bcrypt hashes.
func LoadDigest(s string) (Digest, error) {
	switch {
	case strings.HasPrefix(s, "$argon2id$"):
		return parseArgon2id(s)
	case strings.HasPrefix(s, "$2a$"), strings.HasPrefix(s, "$2b$"), strings.HasPrefix(s, "$2y$"):
		if _, err := bcrypt.Cost([]byte(s)); err != nil {
			return Digest{}, fmt.Errorf("%w: %v", ErrMalformedDigest, err)
		}
		return Digest{encoded: s, kind: kindBcrypt}, nil
	default:
		return Digest{}, ErrMalformedDigest
	}
}

func parseArgon2id(s string) (Digest, error) {
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return Digest{}, ErrMalformedDigest
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Digest{}, ErrMalformedDigest
	}
	var p Argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Iterations, &p.Parallelism); err != nil {
		return Digest{}, ErrMalformedDigest
	}
	if p.MemoryKiB == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return Digest{}, ErrMalformedDigest
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return Digest{}, ErrMalformedDigest
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return Digest{}, ErrMalformedDigest
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return Digest{encoded: s, kind: kindArgon2id, params: p, salt: salt, key: key}, nil
}

func encodeArgon2id(p Argon2Params, salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.MemoryKiB, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
}

// Hasher hashes and verifies passwords with argon2id on a WorkerPool. Callers must
// not log or persist plaintext passwords.
type Hasher struct {
	params Argon2Params
	pool   *WorkerPool
}

// NewHasher returns a Hasher using params (zero fields take defaults). A nil pool
// runs jobs on the calling goroutine.
func NewHasher(pool *WorkerPool, params Argon2Params) *Hasher {
	return &Hasher{params: params.withDefaults(), pool: pool}
}

func (h *Hasher) do(ctx context.Context, fn func() error) error {
	if h.pool == nil {
		return runJob(fn)
	}
	return h.pool.Do(ctx, fn)
}

// Hash returns a salted argon2id digest of password. Passwords shorter than
// MinPasswordLength characters are rejected with ErrPasswordTooShort.
func (h *Hasher) Hash(ctx context.Context, password string) (Digest, error) {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return Digest{}, ErrPasswordTooShort
	}
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return Digest{}, fmt.Errorf("generate salt: %w", err)
	}
	p := h.params
	var key []byte
	err := h.do(ctx, func() error {
		key = argon2.IDKey([]byte(password), salt, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLength)
		return nil
	})
	if err != nil {
		return Digest{}, err
	}
	return Digest{encoded: encodeArgon2id(p, salt, key), kind: kindArgon2id, params: p, salt: salt, key: key}, nil
}

// Verify returns nil if candidate matches d and ErrPasswordMismatch if it does not.
// Any other error means the check could not be performed.
func (h *Hasher) Verify(ctx context.Context, d Digest, candidate string) error {
	switch d.kind {
	case kindArgon2id:
		return h.do(ctx, func() error {
			p := d.params
			got := argon2.IDKey([]byte(candidate), d.salt, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLength)
			if subtle.ConstantTimeCompare(got, d.key) != 1 {
				return ErrPasswordMismatch
			}
			return nil
		})
	case kindBcrypt:
		return h.do(ctx, func() error {
			err := bcrypt.CompareHashAndPassword([]byte(d.encoded), []byte(candidate))
			if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				return ErrPasswordMismatch
			}
			return err
		})
	default:
		return ErrMalformedDigest
	}
}
