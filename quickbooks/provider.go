package quickbooks

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
)

// Intuit endpoints used when discovery is not configured.
const (
	DefaultAuthURL    = "https://appcenter.intuit.com/connect/oauth2"
	DefaultTokenURL   = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"
	DefaultRevokeURL  = "https://developer.api.intuit.com/v2/oauth2/tokens/revoke"
	DefaultAPIBaseURL = "https://quickbooks.api.intuit.com/v3"
)

// DefaultEndpoints returns the well-known Intuit production endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		AuthURL:   DefaultAuthURL,
		TokenURL:  DefaultTokenURL,
		RevokeURL: DefaultRevokeURL,
	}
}

// Discover resolves the provider endpoints from its OIDC discovery document.
// The revocation endpoint is not part of the standard claim set, so it is
// pulled from the raw claims with the Intuit default as fallback.
func Discover(ctx context.Context, issuer string) (Endpoints, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return Endpoints{}, errors.Wrap(err, "oidc discovery")
	}

	endpoints := Endpoints{
		AuthURL:   provider.Endpoint().AuthURL,
		TokenURL:  provider.Endpoint().TokenURL,
		RevokeURL: DefaultRevokeURL,
	}

	var claims struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := provider.Claims(&claims); err == nil && claims.RevocationEndpoint != "" {
		endpoints.RevokeURL = claims.RevocationEndpoint
	}
	return endpoints, nil
}
