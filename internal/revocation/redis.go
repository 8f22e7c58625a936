package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "revoked"

// RedisStore keeps revocation records as SETNX keys expiring with the token.
// SETNX gives the same exactly-one-writer guarantee as the postgres unique
// constraint, and redis expiry doubles as garbage collection.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: redisKeyPrefix}
}

func (s *RedisStore) key(jti string) string {
	return s.prefix + ":" + jti
}

func (s *RedisStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation redis lookup: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Revoking an already-expired token still records the conflict
		// semantics; keep the key around briefly so a duplicate revoke
		// in flight observes it.
		ttl = time.Minute
	}
	ok, err := s.client.SetNX(ctx, s.key(jti), expiresAt.Unix(), ttl).Result()
	if err != nil {
		return fmt.Errorf("revocation redis insert: %w", err)
	}
	if !ok {
		return ErrAlreadyRevoked
	}
	return nil
}
