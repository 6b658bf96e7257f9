package authn

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/ezekl/budget-server/authn/cookie"
	"github.com/ezekl/budget-server/quickbooks"
	"github.com/ezekl/budget-server/sessions"
)

// Guard authorizes requests against stored sessions and transparently
// refreshes stale access tokens. Concurrent refreshes for the same session
// are collapsed into a single upstream call, so the provider's refresh token
// rotation cannot be raced.
type Guard struct {
	config   Config
	codec    *cookie.Codec
	sessions sessions.Repo
	provider *quickbooks.Client
	group    singleflight.Group
	nowTime  func() time.Time
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithGuardNowTime sets the now time function (primarily for testing).
func WithGuardNowTime(nowFunc func() time.Time) GuardOption {
	return func(g *Guard) {
		g.nowTime = nowFunc
	}
}

// NewGuard creates a session guard.
func NewGuard(
	config Config,
	codec *cookie.Codec,
	sessionRepo sessions.Repo,
	provider *quickbooks.Client,
	options ...GuardOption,
) (*Guard, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if codec == nil {
		return nil, errors.New("codec is required")
	}
	if sessionRepo == nil {
		return nil, errors.New("sessions repo is required")
	}
	if provider == nil {
		return nil, errors.New("provider client is required")
	}

	g := &Guard{
		config:   config,
		codec:    codec,
		sessions: sessionRepo,
		provider: provider,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// Authorize resolves a cookie value to its authenticated session. An
// invalid, expired or tampered cookie, a missing session, or a token-less
// placeholder all fail with ErrUnauthenticated. A session whose access token
// is stale is returned together with ErrTokenExpired so the caller can
// refresh before use.
func (g *Guard) Authorize(ctx context.Context, cookieValue string) (sessions.Session, error) {
	sessionID, err := g.codec.Verify(cookieValue, g.config.GetCookieMaxAge())
	if err != nil {
		return sessions.Session{}, errors.Wrap(ErrUnauthenticated, err.Error())
	}
	session, err := g.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			return sessions.Session{}, ErrUnauthenticated
		}
		return sessions.Session{}, errors.Wrap(err, "load session")
	}
	if !session.Authenticated() {
		return sessions.Session{}, ErrUnauthenticated
	}
	if !session.Fresh(g.nowTime()) {
		return session, ErrTokenExpired
	}
	return session, nil
}

// RefreshIfNeeded brings the session's access token back inside the
// freshness window. Callers that observed ErrTokenExpired funnel through
// here; only one of them performs the upstream refresh and the rest reuse
// its result. A definitive provider rejection removes the session, a
// transport failure leaves it intact for a later retry.
func (g *Guard) RefreshIfNeeded(ctx context.Context, sessionID string) (sessions.Session, error) {
	result, err, _ := g.group.Do(sessionID, func() (any, error) {
		return g.refresh(ctx, sessionID)
	})
	if err != nil {
		return sessions.Session{}, err
	}
	return result.(sessions.Session), nil
}

func (g *Guard) refresh(ctx context.Context, sessionID string) (sessions.Session, error) {
	// Re-read inside the flight: a caller that queued behind the winner
	// finds the renewed bundle here and skips the upstream call.
	session, err := g.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			return sessions.Session{}, ErrUnauthenticated
		}
		return sessions.Session{}, errors.Wrap(err, "load session")
	}
	if !session.Authenticated() {
		return sessions.Session{}, ErrUnauthenticated
	}
	if session.Fresh(g.nowTime()) {
		return session, nil
	}

	creds := quickbooks.Credentials{
		ClientID:     g.config.GetClientID(),
		ClientSecret: g.config.GetClientSecret(),
		RedirectURI:  g.config.GetRedirectURI(),
	}
	bundle, err := g.provider.Refresh(ctx, creds, session.RefreshToken)
	if err != nil {
		var provErr *quickbooks.ProviderError
		if errors.As(err, &provErr) && provErr.Transport() {
			return sessions.Session{}, err
		}
		// The provider rejected the refresh token outright, the grant is
		// gone and the session cannot recover.
		log.Info().Str("sessionID", sessionID).Err(err).Msg("refresh rejected, removing session")
		if delErr := g.sessions.Delete(ctx, sessionID); delErr != nil {
			log.Warn().Err(delErr).Msg("session delete failed after rejected refresh")
		}
		return sessions.Session{}, errors.Wrap(ErrUnauthenticated, err.Error())
	}

	session.AccessToken = bundle.AccessToken
	session.RefreshToken = bundle.RefreshToken
	session.TokenExpiry = bundle.Expiry
	if err := g.sessions.Put(ctx, session); err != nil {
		return sessions.Session{}, errors.Wrap(err, "store refreshed session")
	}
	return session, nil
}
