package authn

import "errors"

var (
	// ErrNotConfigured is returned when the provider client id or secret is
	// missing from the environment.
	ErrNotConfigured = errors.New("provider credentials not configured")

	// ErrCsrfState is returned when the callback state does not match an
	// outstanding nonce. No token exchange is attempted.
	ErrCsrfState = errors.New("state verification failed")

	// ErrProviderDenied is returned when the provider called back with an
	// error parameter instead of an authorization code.
	ErrProviderDenied = errors.New("provider denied authorization")

	// ErrMissingCode is returned when the callback carries neither a code
	// nor an error parameter.
	ErrMissingCode = errors.New("authorization code missing")

	// ErrUnauthenticated is returned when no valid authenticated session
	// backs the request.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrTokenExpired is returned alongside the session when its access
	// token is stale and must be refreshed before upstream use.
	ErrTokenExpired = errors.New("access token expired")
)
