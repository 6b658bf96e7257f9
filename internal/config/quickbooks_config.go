package config

// QuickBooksConfig exposes the upstream provider settings. Credentials are
// read from the environment on every call so a missing client id/secret is
// observable per request, not just at startup.
type QuickBooksConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetRedirectURI() string
	GetScopes() string
	GetAuthEndpoint() string
	GetTokenEndpoint() string
	GetRevokeEndpoint() string
	GetAPIBaseURL() string
	GetIssuer() string
}

// Intuit production OAuth2 endpoints, overridable for sandbox or testing.
const (
	defaultAuthEndpoint   = "https://appcenter.intuit.com/connect/oauth2"
	defaultTokenEndpoint  = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"
	defaultRevokeEndpoint = "https://developer.api.intuit.com/v2/oauth2/tokens/revoke"
	defaultAPIBaseURL     = "https://sandbox-quickbooks.api.intuit.com/v3"
	defaultScopes         = "com.intuit.quickbooks.accounting openid profile email phone address"
)

type QuickBooks struct{}

var _ QuickBooksConfig = QuickBooks{}

func (QuickBooks) GetClientID() string {
	return GetEnv("QUICKBOOKS_CLIENT_ID", "")
}

func (QuickBooks) GetClientSecret() string {
	return GetEnv("QUICKBOOKS_CLIENT_SECRET", "")
}

func (q QuickBooks) GetRedirectURI() string {
	return GetEnv("QUICKBOOKS_REDIRECT_URI", EnvVars{}.GetBaseURL()+"/api/v1/auth/callback")
}

func (QuickBooks) GetScopes() string {
	return GetEnv("QUICKBOOKS_SCOPES", defaultScopes)
}

func (QuickBooks) GetAuthEndpoint() string {
	return GetEnv("QUICKBOOKS_AUTH_ENDPOINT", defaultAuthEndpoint)
}

func (QuickBooks) GetTokenEndpoint() string {
	return GetEnv("QUICKBOOKS_TOKEN_ENDPOINT", defaultTokenEndpoint)
}

func (QuickBooks) GetRevokeEndpoint() string {
	return GetEnv("QUICKBOOKS_REVOKE_ENDPOINT", defaultRevokeEndpoint)
}

func (QuickBooks) GetAPIBaseURL() string {
	return GetEnv("QUICKBOOKS_BASE_URL", defaultAPIBaseURL)
}

// GetIssuer returns the OIDC issuer to discover endpoints from. Empty means
// use the static endpoint defaults above.
func (QuickBooks) GetIssuer() string {
	return GetEnv("QUICKBOOKS_ISSUER", "")
}
