package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "qb:session:"

// authenticatedTTL bounds how long an authenticated session record lives in
// Redis without being touched. Each Put resets it, so an actively refreshed
// session stays alive while an abandoned one eventually expires with its
// refresh token.
const authenticatedTTL = 24 * time.Hour

// RedisRepo stores sessions in Redis as cbor-encoded records so multiple
// instances can share them.
type RedisRepo struct {
	client *redis.Client
}

var _ Repo = (*RedisRepo)(nil)

// NewRedisRepo creates a Redis-backed session repository.
func NewRedisRepo(client *redis.Client) *RedisRepo {
	return &RedisRepo{client: client}
}

// CreatePending allocates a random session id holding no tokens. The record
// expires with the login window unless the callback populates it.
func (r *RedisRepo) CreatePending(ctx context.Context) (string, error) {
	sessionID, err := newSessionID()
	if err != nil {
		return "", err
	}
	session := Session{ID: sessionID, CreatedAt: time.Now()}
	if err := r.set(ctx, session, pendingTTL); err != nil {
		return "", err
	}
	return sessionID, nil
}

// Put overwrites the stored session and resets its expiry.
func (r *RedisRepo) Put(ctx context.Context, session Session) error {
	if session.ID == "" {
		return errors.New("session ID is required")
	}
	ttl := authenticatedTTL
	if !session.Authenticated() {
		ttl = pendingTTL
	}
	return r.set(ctx, session, ttl)
}

// Get retrieves a session by id.
func (r *RedisRepo) Get(ctx context.Context, sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, ErrNotFound
	}
	blob, err := r.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	var session Session
	if err := cbor.Unmarshal(blob, &session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// Delete removes a session; absent sessions are ignored.
func (r *RedisRepo) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, redisKeyPrefix+sessionID).Err()
}

func (r *RedisRepo) set(ctx context.Context, session Session, ttl time.Duration) error {
	blob, err := cbor.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKeyPrefix+session.ID, blob, ttl).Err()
}
