// Package cookie signs and verifies the opaque session identifier carried in
// the browser cookie. The codec holds no state beyond the server key: the
// session id is serialized together with an issued-at timestamp and an
// HMAC-SHA256 tag, so any mutation of either field invalidates the value.
package cookie

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTampered is returned when the integrity tag does not match.
	ErrTampered = errors.New("cookie signature mismatch")
	// ErrExpired is returned when the value was issued longer ago than the
	// caller-supplied maximum age.
	ErrExpired = errors.New("cookie expired")
	// ErrMalformed is returned for values that do not parse at all.
	ErrMalformed = errors.New("malformed cookie value")
)

const minSecretLen = 32

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Codec signs session ids into cookie values and verifies them back.
type Codec struct {
	secret  []byte
	nowTime func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Codec) {
		c.nowTime = nowFunc
	}
}

// New creates a Codec. The secret must carry at least 256 bits.
func New(secret []byte, options ...Option) (*Codec, error) {
	if len(secret) < minSecretLen {
		return nil, errors.New("cookie secret must be at least 32 bytes")
	}
	c := &Codec{
		secret:  secret,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Sign serializes the session id with the current timestamp and a keyed tag.
func (c *Codec) Sign(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("sessionID is required")
	}
	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(c.nowTime()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify recomputes the tag and enforces maxAge against the embedded
// issued-at timestamp. It never panics on malformed input; every failure is
// one of ErrTampered, ErrExpired or ErrMalformed.
func (c *Codec) Verify(value string, maxAge time.Duration) (string, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	var claims sessionClaims
	_, err := parser.ParseWithClaims(value, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return "", ErrTampered
		}
		return "", ErrMalformed
	}

	if claims.SessionID == "" || claims.IssuedAt == nil {
		return "", ErrMalformed
	}
	if c.nowTime().Sub(claims.IssuedAt.Time) > maxAge {
		return "", ErrExpired
	}
	return claims.SessionID, nil
}
