// Package state issues and consumes the single-use anti-CSRF nonces that
// bind a login attempt to its callback.
package state

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// ErrNotFound is returned by Consume when the nonce was never issued, was
// already consumed, or has expired. Callers cannot distinguish the three;
// the whole login flow must be restarted either way.
var ErrNotFound = errors.New("state not found")

// nonceLength is the number of random bytes behind each nonce. 32 bytes
// gives 256 bits of entropy.
const nonceLength = 32

// Repo maps a single-use nonce to the pending session id it was issued for.
type Repo interface {
	// Issue generates a random nonce bound to pendingSessionID.
	Issue(ctx context.Context, pendingSessionID string) (string, error)

	// Consume atomically retrieves and deletes the mapping. A second call
	// for the same nonce fails with ErrNotFound.
	Consume(ctx context.Context, nonce string) (string, error)
}

func newNonce() (string, error) {
	b := make([]byte, nonceLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
