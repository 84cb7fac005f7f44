package security

import "time"

// testSecret is for unit tests only. Do not use in production.
const testSecret = "test-secret-do-not-use-in-production"

// NewTestTokenProvider returns a TokenProvider using the embedded test secret and
// the default TTL. For unit tests only. Callers must not use in production.
func NewTestTokenProvider() *TokenProvider {
	p, err := NewTokenProvider([]byte(testSecret), "test-issuer", DefaultTokenTTL)
	if err != nil {
		panic(err)
	}
	return p
}

// NewTestHasher returns a Hasher with cheap argon2id parameters so tests stay fast.
// For unit tests only.
func NewTestHasher() *Hasher {
	return NewHasher(nil, Argon2Params{MemoryKiB: 64, Iterations: 1, Parallelism: 1})
}

// FixedClock returns a clock stuck at t, truncated to whole seconds like JWT dates.
func FixedClock(t time.Time) func() time.Time {
	t = t.Truncate(time.Second)
	return func() time.Time { return t }
}
