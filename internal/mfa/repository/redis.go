package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"auth-service/internal/mfa"
	"auth-service/internal/mfa/domain"
	userdomain "auth-service/internal/user/domain"
)

const challengeKeyPrefix = "two_fa_code:"

type challengeRecord struct {
	AttemptID string    `json:"attempt_id"`
	CodeHash  string    `json:"code_hash"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisRepository stores each challenge as a JSON value under two_fa_code:<email> with a key TTL.
// VerifyAndConsume runs as a WATCH/MULTI transaction; losing a race reports ErrIncorrectCode.
type RedisRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisRepository returns a Redis-backed store; ttl <= 0 means DefaultChallengeTTL.
func NewRedisRepository(client redis.UniversalClient, ttl time.Duration) *RedisRepository {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &RedisRepository{client: client, ttl: ttl, now: time.Now}
}

func challengeKey(email userdomain.Email) string {
	return challengeKeyPrefix + email.String()
}

func (r *RedisRepository) Issue(ctx context.Context, email userdomain.Email, attemptID, code string) error {
	raw, err := json.Marshal(challengeRecord{
		AttemptID: attemptID,
		CodeHash:  mfa.HashOTP(code),
		ExpiresAt: r.now().Add(r.ttl).UTC(),
	})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, challengeKey(email), raw, r.ttl).Err()
}

func decodeChallenge(email userdomain.Email, raw []byte) (*domain.Challenge, error) {
	var rec challengeRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode challenge for %s: %w", email, err)
	}
	return &domain.Challenge{Email: email, AttemptID: rec.AttemptID, CodeHash: rec.CodeHash, ExpiresAt: rec.ExpiresAt}, nil
}

func (r *RedisRepository) VerifyAndConsume(ctx context.Context, email userdomain.Email, attemptID, code string) error {
	key := challengeKey(email)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		c, err := decodeChallenge(email, raw)
		if err != nil {
			return err
		}
		if !matches(c, attemptID, code) {
			return ErrIncorrectCode
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrIncorrectCode
	}
	return err
}

func (r *RedisRepository) Remove(ctx context.Context, email userdomain.Email) error {
	return r.client.Del(ctx, challengeKey(email)).Err()
}

func (r *RedisRepository) Get(ctx context.Context, email userdomain.Email) (*domain.Challenge, error) {
	raw, err := r.client.Get(ctx, challengeKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeChallenge(email, raw)
}
