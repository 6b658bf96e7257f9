package sessions

import (
	"context"
	"errors"
	"sync"
	"time"
)

// InMemoryRepo is a thread-safe in-memory implementation of Repo.
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
	nowTime  func() time.Time
}

// InMemoryOption configures an InMemoryRepo.
type InMemoryOption func(*InMemoryRepo)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) InMemoryOption {
	return func(r *InMemoryRepo) {
		r.nowTime = nowFunc
	}
}

// NewInMemoryRepo creates a new in-memory session repository.
func NewInMemoryRepo(options ...InMemoryOption) *InMemoryRepo {
	r := &InMemoryRepo{
		sessions: make(map[string]Session),
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

var _ Repo = (*InMemoryRepo)(nil)

// CreatePending allocates a random session id holding no tokens.
func (r *InMemoryRepo) CreatePending(_ context.Context) (string, error) {
	sessionID, err := newSessionID()
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prunePendingLocked(r.nowTime())
	r.sessions[sessionID] = Session{ID: sessionID, CreatedAt: r.nowTime()}
	return sessionID, nil
}

// Put overwrites the stored session.
func (r *InMemoryRepo) Put(_ context.Context, session Session) error {
	if session.ID == "" {
		return errors.New("session ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = session
	return nil
}

// Get retrieves a session by id. Expired token-less placeholders are treated
// as absent and cleaned up on the way.
func (r *InMemoryRepo) Get(_ context.Context, sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	if !session.Authenticated() && r.nowTime().Sub(session.CreatedAt) > pendingTTL {
		delete(r.sessions, sessionID)
		return Session{}, ErrNotFound
	}
	return session, nil
}

// Delete removes a session; absent sessions are ignored.
func (r *InMemoryRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	return nil
}

// Len reports the number of stored sessions.
func (r *InMemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *InMemoryRepo) prunePendingLocked(now time.Time) {
	for id, session := range r.sessions {
		if !session.Authenticated() && now.Sub(session.CreatedAt) > pendingTTL {
			delete(r.sessions, id)
		}
	}
}
