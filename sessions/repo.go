package sessions

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no session exists for the id.
var ErrNotFound = errors.New("session not found")

// sessionIDLength is the number of random bytes behind each session id.
// 32 bytes gives 256 bits of entropy.
const sessionIDLength = 32

// pendingTTL bounds how long a token-less placeholder may wait for its
// callback before it is discarded, matching the CSRF nonce window.
const pendingTTL = 10 * time.Minute

// Repo is the exclusive owner of Session records.
type Repo interface {
	// CreatePending allocates a new random session id with no tokens yet.
	CreatePending(ctx context.Context) (string, error)

	// Put overwrites the stored session, used on callback success and on
	// refresh. The previous bundle, including the refresh token, is replaced
	// wholesale.
	Put(ctx context.Context, session Session) error

	// Get retrieves a session by id.
	Get(ctx context.Context, sessionID string) (Session, error)

	// Delete removes a session. Deleting an absent session is not an error.
	Delete(ctx context.Context, sessionID string) error
}

func newSessionID() (string, error) {
	b := make([]byte, sessionIDLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
