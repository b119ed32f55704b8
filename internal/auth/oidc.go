package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

const (
	oidcIssuerPath = "/oidc"
	oidcTokenPath  = "/oidc/v1/token"
)

// discoverTokenEndpoint reads the token endpoint from the issuer's
// discovery document.
func discoverTokenEndpoint(ctx context.Context, client *http.Client, issuer string) (string, error) {
	ctx = oidc.ClientContext(ctx, client)
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return "", fmt.Errorf("discover OIDC provider %s: %w", issuer, err)
	}

	endpoint := provider.Endpoint()
	if endpoint.TokenURL == "" {
		return "", errors.New("discovery document has no token_endpoint")
	}
	return endpoint.TokenURL, nil
}
