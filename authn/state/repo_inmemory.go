package state

import (
	"context"
	"errors"
	"sync"
	"time"
)

type entry struct {
	sessionID string
	createdAt time.Time
}

// InMemoryRepo is a thread-safe in-memory implementation of Repo. Entries
// expire after the configured TTL and the map is capped so abandoned logins
// cannot grow it without bound.
type InMemoryRepo struct {
	mu      sync.Mutex
	states  map[string]entry
	ttl     time.Duration
	cap     int
	nowTime func() time.Time
}

// InMemoryOption configures an InMemoryRepo.
type InMemoryOption func(*InMemoryRepo)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) InMemoryOption {
	return func(r *InMemoryRepo) {
		r.nowTime = nowFunc
	}
}

// NewInMemoryRepo creates an in-memory state repository. ttl bounds how long
// an issued nonce stays consumable; capacity bounds the number of live
// entries, evicting the oldest on overflow.
func NewInMemoryRepo(ttl time.Duration, capacity int, options ...InMemoryOption) *InMemoryRepo {
	r := &InMemoryRepo{
		states:  make(map[string]entry),
		ttl:     ttl,
		cap:     capacity,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Issue generates a nonce for pendingSessionID and stores the mapping.
func (r *InMemoryRepo) Issue(_ context.Context, pendingSessionID string) (string, error) {
	if pendingSessionID == "" {
		return "", errors.New("pendingSessionID is required")
	}
	nonce, err := newNonce()
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowTime()
	r.pruneLocked(now)
	if r.cap > 0 && len(r.states) >= r.cap {
		r.evictOldestLocked()
	}
	r.states[nonce] = entry{sessionID: pendingSessionID, createdAt: now}
	return nonce, nil
}

// Consume retrieves and deletes the mapping under a single lock so a nonce
// can never be redeemed twice.
func (r *InMemoryRepo) Consume(_ context.Context, nonce string) (string, error) {
	if nonce == "" {
		return "", ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.states[nonce]
	if !ok {
		return "", ErrNotFound
	}
	delete(r.states, nonce)
	if r.nowTime().Sub(e.createdAt) > r.ttl {
		return "", ErrNotFound
	}
	return e.sessionID, nil
}

// Len reports the number of live entries.
func (r *InMemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *InMemoryRepo) pruneLocked(now time.Time) {
	for nonce, e := range r.states {
		if now.Sub(e.createdAt) > r.ttl {
			delete(r.states, nonce)
		}
	}
}

func (r *InMemoryRepo) evictOldestLocked() {
	var oldestNonce string
	var oldestAt time.Time
	for nonce, e := range r.states {
		if oldestNonce == "" || e.createdAt.Before(oldestAt) {
			oldestNonce = nonce
			oldestAt = e.createdAt
		}
	}
	if oldestNonce != "" {
		delete(r.states, oldestNonce)
	}
}
