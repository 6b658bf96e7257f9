package state

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "qb:state:"

// RedisRepo stores nonce mappings in Redis so multiple instances can share
// the login flow. The TTL bound is enforced by Redis key expiry; GETDEL makes
// consumption atomic across instances.
type RedisRepo struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Repo = (*RedisRepo)(nil)

// NewRedisRepo creates a Redis-backed state repository.
func NewRedisRepo(client *redis.Client, ttl time.Duration) *RedisRepo {
	return &RedisRepo{client: client, ttl: ttl}
}

// Issue generates a nonce for pendingSessionID with the configured expiry.
func (r *RedisRepo) Issue(ctx context.Context, pendingSessionID string) (string, error) {
	if pendingSessionID == "" {
		return "", errors.New("pendingSessionID is required")
	}
	nonce, err := newNonce()
	if err != nil {
		return "", err
	}
	if err := r.client.Set(ctx, redisKeyPrefix+nonce, pendingSessionID, r.ttl).Err(); err != nil {
		return "", err
	}
	return nonce, nil
}

// Consume retrieves and deletes the mapping in one round trip.
func (r *RedisRepo) Consume(ctx context.Context, nonce string) (string, error) {
	if nonce == "" {
		return "", ErrNotFound
	}
	sessionID, err := r.client.GetDel(ctx, redisKeyPrefix+nonce).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return sessionID, nil
}
