package quickbooks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// APIClient proxies requests to the QuickBooks Online company API. Responses
// are returned as raw JSON, the server does not reshape provider payloads.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// APIOption configures the APIClient.
type APIOption func(*APIClient)

// WithAPIHTTPClient sets a custom HTTP client.
func WithAPIHTTPClient(httpClient *http.Client) APIOption {
	return func(c *APIClient) {
		c.httpClient = httpClient
	}
}

// NewAPIClient creates a company API client rooted at baseURL, e.g.
// "https://quickbooks.api.intuit.com/v3".
func NewAPIClient(baseURL string, opts ...APIOption) *APIClient {
	c := &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs a GET against a company-scoped path such as "employee/55".
func (c *APIClient) Get(ctx context.Context, accessToken, realmID, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, accessToken, realmID, path, nil)
}

// Post sends a JSON body to a company-scoped path.
func (c *APIClient) Post(ctx context.Context, accessToken, realmID, path string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, accessToken, realmID, path, body)
}

// Query runs a QuickBooks query statement against the company.
func (c *APIClient) Query(ctx context.Context, accessToken, realmID, statement string) ([]byte, error) {
	path := "query?query=" + url.QueryEscape(statement)
	return c.do(ctx, http.MethodGet, accessToken, realmID, path, nil)
}

func (c *APIClient) do(ctx context.Context, method, accessToken, realmID, path string, body []byte) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/company/%s/%s", c.baseURL, url.PathEscape(realmID), path)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &ProviderError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Fault:      parseFault(respBody),
			Body:       string(respBody),
		}
	}
	return respBody, nil
}

const maxResponseBytes = 10 << 20
