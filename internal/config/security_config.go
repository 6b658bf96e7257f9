package config

import "time"

type SecurityConfig interface {
	GetCookieSecret() []byte
	GetCookieMaxAge() time.Duration
	GetStateTTL() time.Duration
	GetStateCap() int
	GetProviderTimeout() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetCookieSecret returns the HMAC key for the session cookie. Empty when
// unset; the caller decides whether to generate an ephemeral key or refuse
// to start.
func (Security) GetCookieSecret() []byte {
	return []byte(GetEnv("SESSION_COOKIE_SECRET", ""))
}

func (Security) GetCookieMaxAge() time.Duration {
	return 1 * time.Hour
}

// GetStateTTL bounds how long a login flow may take between the redirect to
// the provider and the callback. Abandoned flows are evicted after this.
func (Security) GetStateTTL() time.Duration {
	return 10 * time.Minute
}

// GetStateCap bounds the in-memory CSRF state store against adversarial
// login floods.
func (Security) GetStateCap() int {
	return 10000
}

func (Security) GetProviderTimeout() time.Duration {
	return 30 * time.Second
}
