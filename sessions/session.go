// Package sessions owns the per-user token bundles. A session starts as a
// token-less placeholder at login-begin, is populated at callback time, is
// overwritten in place by refresh, and is removed by logout or revocation.
package sessions

import "time"

// FreshnessMargin is the fixed lead time before actual expiry at which an
// access token is treated as already stale, so it is never used mid-flight.
const FreshnessMargin = 5 * time.Minute

// Session holds a user's upstream token bundle and the tenant it is scoped to.
type Session struct {
	ID           string    `cbor:"1,keyasint"`
	AccessToken  string    `cbor:"2,keyasint,omitempty"`
	RefreshToken string    `cbor:"3,keyasint,omitempty"`
	TokenExpiry  time.Time `cbor:"4,keyasint,omitempty"`
	RealmID      string    `cbor:"5,keyasint,omitempty"`
	CreatedAt    time.Time `cbor:"6,keyasint"`
}

// Authenticated reports whether the session holds tokens at all. A session
// without tokens is only a pre-authentication placeholder and never grants
// access.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// Fresh reports whether the access token is still usable at now, applying
// the freshness margin.
func (s Session) Fresh(now time.Time) bool {
	return s.Authenticated() && now.Before(s.TokenExpiry.Add(-FreshnessMargin))
}
