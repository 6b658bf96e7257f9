package authn_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ezekl/budget-server/authn"
	"github.com/ezekl/budget-server/authn/cookie"
	"github.com/ezekl/budget-server/authn/state"
	"github.com/ezekl/budget-server/quickbooks"
	"github.com/ezekl/budget-server/sessions"
)

type testConfig struct {
	clientID     string
	clientSecret string
}

func (c testConfig) GetClientID() string     { return c.clientID }
func (c testConfig) GetClientSecret() string { return c.clientSecret }
func (c testConfig) GetRedirectURI() string {
	return "http://localhost:8001/api/v1/auth/callback"
}
func (c testConfig) GetScopes() string { return "com.intuit.quickbooks.accounting openid" }
func (c testConfig) GetCookieMaxAge() time.Duration {
	return time.Hour
}

var configuredTest = testConfig{clientID: "client-id", clientSecret: "client-secret"}

// fakeProvider is a stand-in token endpoint that counts exchanges and
// refreshes and hands out sequentially numbered tokens.
type fakeProvider struct {
	server    *httptest.Server
	exchanges atomic.Int64
	refreshes atomic.Int64
	revokes   atomic.Int64
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		var n int64
		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			n = p.exchanges.Add(1)
		case "refresh_token":
			n = p.refreshes.Add(1)
		default:
			t.Fatalf("unexpected grant_type %q", r.PostForm.Get("grant_type"))
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-" + r.PostForm.Get("grant_type") + "-" + itoa(n),
			"refresh_token": "refresh-" + itoa(n),
			"token_type":    "bearer",
			"expires_in":    3600,
		}))
	})
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		p.revokes.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func (p *fakeProvider) endpoints() quickbooks.Endpoints {
	return quickbooks.Endpoints{
		AuthURL:   p.server.URL + "/authorize",
		TokenURL:  p.server.URL + "/token",
		RevokeURL: p.server.URL + "/revoke",
	}
}

type fixture struct {
	service  *authn.Service
	guard    *authn.Guard
	codec    *cookie.Codec
	sessions sessions.Repo
	provider *fakeProvider
}

func newFixture(t *testing.T, cfg authn.Config) *fixture {
	t.Helper()
	codec, err := cookie.New([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	provider := newFakeProvider(t)
	client := quickbooks.NewClient(provider.endpoints())
	states := state.NewInMemoryRepo(10*time.Minute, 100)
	sessionRepo := sessions.NewInMemoryRepo()

	service, err := authn.NewService(cfg, codec, states, sessionRepo, client)
	require.NoError(t, err)
	guard, err := authn.NewGuard(cfg, codec, sessionRepo, client)
	require.NoError(t, err)

	return &fixture{
		service:  service,
		guard:    guard,
		codec:    codec,
		sessions: sessionRepo,
		provider: provider,
	}
}

// stateFromRedirect pulls the state nonce back out of the authorization URL.
func stateFromRedirect(t *testing.T, rawURL string) string {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)
	nonce := parsed.Query().Get("state")
	require.NotEmpty(t, nonce)
	return nonce
}

func TestBeginLogin(t *testing.T) {
	t.Run("builds the authorization redirect and a signed cookie", func(t *testing.T) {
		f := newFixture(t, configuredTest)

		login, err := f.service.BeginLogin(context.Background())
		require.NoError(t, err)

		parsed, err := url.Parse(login.RedirectURL)
		require.NoError(t, err)
		query := parsed.Query()
		require.Equal(t, "client-id", query.Get("client_id"))
		require.Equal(t, "code", query.Get("response_type"))
		require.NotEmpty(t, query.Get("state"))

		sessionID, err := f.codec.Verify(login.CookieValue, time.Hour)
		require.NoError(t, err)

		session, err := f.sessions.Get(context.Background(), sessionID)
		require.NoError(t, err)
		require.False(t, session.Authenticated())
	})

	t.Run("two logins get distinct states and sessions", func(t *testing.T) {
		f := newFixture(t, configuredTest)

		first, err := f.service.BeginLogin(context.Background())
		require.NoError(t, err)
		second, err := f.service.BeginLogin(context.Background())
		require.NoError(t, err)

		require.NotEqual(t, stateFromRedirect(t, first.RedirectURL), stateFromRedirect(t, second.RedirectURL))
		require.NotEqual(t, first.CookieValue, second.CookieValue)
	})

	t.Run("refuses without provider credentials", func(t *testing.T) {
		f := newFixture(t, testConfig{})

		_, err := f.service.BeginLogin(context.Background())
		require.ErrorIs(t, err, authn.ErrNotConfigured)
	})
}

func TestCompleteCallback(t *testing.T) {
	t.Run("full flow ends in an authenticated fresh session", func(t *testing.T) {
		f := newFixture(t, configuredTest)
		ctx := context.Background()

		login, err := f.service.BeginLogin(ctx)
		require.NoError(t, err)
		nonce := stateFromRedirect(t, login.RedirectURL)

		cookieValue, err := f.service.CompleteCallback(ctx, "auth-code", nonce, "", "realm-9")
		require.NoError(t, err)
		require.EqualValues(t, 1, f.provider.exchanges.Load())

		session, err := f.guard.Authorize(ctx, cookieValue)
		require.NoError(t, err)
		require.True(t, session.Authenticated())
		require.Equal(t, "realm-9", session.RealmID)
		require.NotEmpty(t, session.RefreshToken)

		status := f.service.Status(ctx, cookieValue)
		require.True(t, status.Authenticated)
		require.True(t, status.TokenValid)
		require.Equal(t, "realm-9", status.RealmID)
	})

	t.Run("unknown state aborts before the exchange", func(t *testing.T) {
		f := newFixture(t, configuredTest)

		_, err := f.service.CompleteCallback(context.Background(), "auth-code", "forged-state", "", "realm-9")
		require.ErrorIs(t, err, authn.ErrCsrfState)
		require.EqualValues(t, 0, f.provider.exchanges.Load())
	})

	t.Run("a state cannot be replayed", func(t *testing.T) {
		f := newFixture(t, configuredTest)
		ctx := context.Background()

		login, err := f.service.BeginLogin(ctx)
		require.NoError(t, err)
		nonce := stateFromRedirect(t, login.RedirectURL)

		_, err = f.service.CompleteCallback(ctx, "auth-code", nonce, "", "realm-9")
		require.NoError(t, err)

		_, err = f.service.CompleteCallback(ctx, "auth-code", nonce, "", "realm-9")
		require.ErrorIs(t, err, authn.ErrCsrfState)
		require.EqualValues(t, 1, f.provider.exchanges.Load())
	})

	t.Run("provider denial wins over everything else", func(t *testing.T) {
		f := newFixture(t, configuredTest)
		ctx := context.Background()

		login, err := f.service.BeginLogin(ctx)
		require.NoError(t, err)
		nonce := stateFromRedirect(t, login.RedirectURL)

		_, err = f.service.CompleteCallback(ctx, "auth-code", nonce, "access_denied", "realm-9")
		require.ErrorIs(t, err, authn.ErrProviderDenied)
		require.EqualValues(t, 0, f.provider.exchanges.Load())
	})

	t.Run("missing code is rejected before state lookup", func(t *testing.T) {
		f := newFixture(t, configuredTest)
		ctx := context.Background()

		login, err := f.service.BeginLogin(ctx)
		require.NoError(t, err)
		nonce := stateFromRedirect(t, login.RedirectURL)

		_, err = f.service.CompleteCallback(ctx, "", nonce, "", "realm-9")
		require.ErrorIs(t, err, authn.ErrMissingCode)

		// The nonce was not consumed, the flow can still be completed.
		_, err = f.service.CompleteCallback(ctx, "auth-code", nonce, "", "realm-9")
		require.NoError(t, err)
	})
}

func TestStatus(t *testing.T) {
	t.Run("invalid cookie reads as unauthenticated", func(t *testing.T) {
		f := newFixture(t, configuredTest)

		status := f.service.Status(context.Background(), "not-a-cookie")
		require.False(t, status.Authenticated)
		require.False(t, status.TokenValid)
		require.Nil(t, status.ExpiresAt)
	})

	t.Run("pending session reads as unauthenticated", func(t *testing.T) {
		f := newFixture(t, configuredTest)
		ctx := context.Background()

		login, err := f.service.BeginLogin(ctx)
		require.NoError(t, err)

		status := f.service.Status(ctx, login.CookieValue)
		require.False(t, status.Authenticated)
	})
}

func TestLogout(t *testing.T) {
	t.Run("revokes upstream and removes the session", func(t *testing.T) {
		f := newFixture(t, configuredTest)
		ctx := context.Background()

		login, err := f.service.BeginLogin(ctx)
		require.NoError(t, err)
		nonce := stateFromRedirect(t, login.RedirectURL)
		cookieValue, err := f.service.CompleteCallback(ctx, "auth-code", nonce, "", "realm-9")
		require.NoError(t, err)

		f.service.Logout(ctx, cookieValue)
		require.EqualValues(t, 1, f.provider.revokes.Load())

		_, err = f.guard.Authorize(ctx, cookieValue)
		require.ErrorIs(t, err, authn.ErrUnauthenticated)
	})

	t.Run("tolerates a garbage cookie and repeats", func(t *testing.T) {
		f := newFixture(t, configuredTest)
		ctx := context.Background()

		f.service.Logout(ctx, "garbage")
		f.service.Logout(ctx, "")
		require.EqualValues(t, 0, f.provider.revokes.Load())
	})
}
