// Package authn coordinates the OAuth2 authorization-code flow with the
// provider and guards requests with the resulting sessions. It owns no
// storage of its own; sessions and CSRF state live behind their repos and
// the browser only ever sees a signed opaque session id.
package authn

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/ezekl/budget-server/authn/cookie"
	"github.com/ezekl/budget-server/authn/state"
	"github.com/ezekl/budget-server/quickbooks"
	"github.com/ezekl/budget-server/sessions"
)

// Config is the slice of server configuration the flow needs.
type Config interface {
	GetClientID() string
	GetClientSecret() string
	GetRedirectURI() string
	GetScopes() string
	GetCookieMaxAge() time.Duration
}

// Status is a side-effect-free snapshot of a session's standing.
type Status struct {
	Authenticated bool
	TokenValid    bool
	RealmID       string
	ExpiresAt     *time.Time
}

// Login is the outcome of starting an authorization flow: where to send the
// browser and the signed cookie value binding it to the pending session.
type Login struct {
	RedirectURL string
	CookieValue string
}

// Service runs the authorization-code flow end to end.
type Service struct {
	config   Config
	codec    *cookie.Codec
	states   state.Repo
	sessions sessions.Repo
	provider *quickbooks.Client
	nowTime  func() time.Time
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService creates the flow coordinator.
func NewService(
	config Config,
	codec *cookie.Codec,
	states state.Repo,
	sessionRepo sessions.Repo,
	provider *quickbooks.Client,
	options ...ServiceOption,
) (*Service, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if codec == nil {
		return nil, errors.New("codec is required")
	}
	if states == nil {
		return nil, errors.New("states repo is required")
	}
	if sessionRepo == nil {
		return nil, errors.New("sessions repo is required")
	}
	if provider == nil {
		return nil, errors.New("provider client is required")
	}

	s := &Service{
		config:   config,
		codec:    codec,
		states:   states,
		sessions: sessionRepo,
		provider: provider,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Service) credentials() (quickbooks.Credentials, error) {
	creds := quickbooks.Credentials{
		ClientID:     s.config.GetClientID(),
		ClientSecret: s.config.GetClientSecret(),
		RedirectURI:  s.config.GetRedirectURI(),
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return quickbooks.Credentials{}, ErrNotConfigured
	}
	return creds, nil
}

// BeginLogin creates a pending session, issues a CSRF nonce bound to it and
// builds the provider authorization URL carrying that nonce as state.
func (s *Service) BeginLogin(ctx context.Context) (Login, error) {
	creds, err := s.credentials()
	if err != nil {
		return Login{}, err
	}

	sessionID, err := s.sessions.CreatePending(ctx)
	if err != nil {
		return Login{}, errors.Wrap(err, "create pending session")
	}
	nonce, err := s.states.Issue(ctx, sessionID)
	if err != nil {
		return Login{}, errors.Wrap(err, "issue state nonce")
	}
	cookieValue, err := s.codec.Sign(sessionID)
	if err != nil {
		return Login{}, errors.Wrap(err, "sign session cookie")
	}

	return Login{
		RedirectURL: s.provider.AuthCodeURL(creds, s.config.GetScopes(), nonce),
		CookieValue: cookieValue,
	}, nil
}

// CompleteCallback finishes the flow after the provider redirects back.
// Checks run in a fixed order and the first failure wins: provider error
// parameter, missing code, state verification, then the code exchange. The
// state nonce is consumed even when a later step fails, so a replayed
// callback can never reach the exchange.
func (s *Service) CompleteCallback(ctx context.Context, code, stateParam, errParam, realmID string) (string, error) {
	if errParam != "" {
		return "", errors.Wrapf(ErrProviderDenied, "provider error %q", errParam)
	}
	if code == "" {
		return "", ErrMissingCode
	}

	sessionID, err := s.states.Consume(ctx, stateParam)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return "", ErrCsrfState
		}
		return "", errors.Wrap(err, "consume state nonce")
	}

	creds, err := s.credentials()
	if err != nil {
		return "", err
	}
	bundle, err := s.provider.Exchange(ctx, creds, code)
	if err != nil {
		return "", err
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, sessions.ErrNotFound) {
			return "", errors.Wrap(err, "load pending session")
		}
		// Pending record aged out between redirect and callback; recreate
		// it under the same id so the cookie stays valid.
		session = sessions.Session{ID: sessionID, CreatedAt: s.nowTime()}
	}

	session.AccessToken = bundle.AccessToken
	session.RefreshToken = bundle.RefreshToken
	session.TokenExpiry = bundle.Expiry
	session.RealmID = realmID
	if err := s.sessions.Put(ctx, session); err != nil {
		return "", errors.Wrap(err, "store session")
	}

	return s.codec.Sign(sessionID)
}

// Status reports the standing of the session behind a cookie value without
// touching the provider or mutating anything. An absent or invalid cookie
// is not an error, just an unauthenticated status.
func (s *Service) Status(ctx context.Context, cookieValue string) Status {
	sessionID, err := s.codec.Verify(cookieValue, s.config.GetCookieMaxAge())
	if err != nil {
		return Status{}
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil || !session.Authenticated() {
		return Status{}
	}

	expiresAt := session.TokenExpiry
	return Status{
		Authenticated: true,
		TokenValid:    session.Fresh(s.nowTime()),
		RealmID:       session.RealmID,
		ExpiresAt:     &expiresAt,
	}
}

// Logout revokes the session's refresh token upstream on a best-effort
// basis and removes the local session. It succeeds regardless of cookie
// validity, session existence or revocation outcome, so logout is always
// safe to repeat.
func (s *Service) Logout(ctx context.Context, cookieValue string) {
	sessionID, err := s.codec.Verify(cookieValue, s.config.GetCookieMaxAge())
	if err != nil {
		return
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return
	}

	if session.RefreshToken != "" {
		creds, err := s.credentials()
		if err == nil {
			if err := s.provider.Revoke(ctx, creds, session.RefreshToken); err != nil {
				log.Warn().Err(err).Msg("token revocation failed, removing session anyway")
			}
		}
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		log.Warn().Err(err).Msg("session delete failed during logout")
	}
}
