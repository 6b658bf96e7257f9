// Package quickbooks talks to the Intuit OAuth2 endpoints and the QuickBooks
// Online company API.
package quickbooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultHTTPTimeout bounds every upstream call so a slow provider cannot
// hold a request (or a session lock) indefinitely.
const DefaultHTTPTimeout = 30 * time.Second

// ErrNoRefreshToken is returned by Refresh when no refresh token is held.
var ErrNoRefreshToken = errors.New("no refresh token held")

// Endpoints are the provider OAuth2 endpoints.
type Endpoints struct {
	AuthURL   string
	TokenURL  string
	RevokeURL string
}

// Credentials identify this application to the provider. They are passed per
// call so configuration problems surface on the request that hits them.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// TokenBundle is a provider token response with an absolute expiry.
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Client performs the token operations against the provider: authorization
// URL construction, code exchange, refresh and revocation.
type Client struct {
	endpoints  Endpoints
	httpClient *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a token client for the given endpoints.
func NewClient(endpoints Endpoints, opts ...ClientOption) *Client {
	c := &Client{
		endpoints:  endpoints,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) oauthConfig(creds Credentials, scopes string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       strings.Fields(scopes),
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.endpoints.AuthURL,
			TokenURL:  c.endpoints.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader, // Intuit requires Basic auth
		},
	}
}

// AuthCodeURL builds the provider authorization URL with client_id,
// redirect_uri, response_type=code, scope and state, query-encoded.
func (c *Client) AuthCodeURL(creds Credentials, scopes, state string) string {
	return c.oauthConfig(creds, scopes).AuthCodeURL(state)
}

// Exchange swaps an authorization code for a token bundle.
func (c *Client) Exchange(ctx context.Context, creds Credentials, code string) (*TokenBundle, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.oauthConfig(creds, "").Exchange(ctx, code)
	if err != nil {
		return nil, asProviderError(err)
	}
	return bundleFromToken(token), nil
}

// Refresh mints a new bundle from a refresh token. The provider rotates the
// refresh token on every call, so the returned bundle must replace the
// stored one wholesale.
func (c *Client) Refresh(ctx context.Context, creds Credentials, refreshToken string) (*TokenBundle, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	source := c.oauthConfig(creds, "").TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, asProviderError(err)
	}
	return bundleFromToken(token), nil
}

// Revoke invalidates a token upstream. Revoking a refresh token also
// invalidates its paired access token. An already-revoked or unknown token
// is reported as success so logout stays idempotent.
func (c *Client) Revoke(ctx context.Context, creds Credentials, token string) error {
	payload, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoints.RevokeURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.SetBasicAuth(creds.ClientID, creds.ClientSecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusBadRequest {
		// Intuit answers 400 for tokens it no longer knows about.
		return nil
	}
	return &ProviderError{
		StatusCode: resp.StatusCode,
		Fault:      parseFault(body),
		Body:       string(body),
	}
}

func bundleFromToken(token *oauth2.Token) *TokenBundle {
	return &TokenBundle{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
}

func asProviderError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return &ProviderError{
			StatusCode: status,
			OAuthError: re.ErrorCode,
			Detail:     re.ErrorDescription,
			Fault:      parseFault(re.Body),
			Body:       string(re.Body),
		}
	}
	return &ProviderError{Err: err}
}
