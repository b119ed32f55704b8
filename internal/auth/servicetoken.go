package auth

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/brporter/lakegate/internal/config"
	"github.com/brporter/lakegate/internal/identity"
)

// ServiceTokenSource obtains service identity tokens with the
// client-credentials grant. Every call performs a fresh exchange; tokens are
// never cached.
type ServiceTokenSource struct {
	cfg    *config.Config
	client *http.Client
	logger *slog.Logger
}

// NewServiceTokenSource creates a token source. A nil client uses
// http.DefaultClient.
func NewServiceTokenSource(cfg *config.Config, client *http.Client, logger *slog.Logger) *ServiceTokenSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &ServiceTokenSource{cfg: cfg, client: client, logger: logger}
}

// TokenURL returns the token endpoint, discovered from {host}/oidc when
// OIDC discovery is enabled.
func (s *ServiceTokenSource) TokenURL(ctx context.Context) (string, error) {
	base, err := s.cfg.BaseURL()
	if err != nil {
		return "", err
	}
	if !s.cfg.OIDCDiscovery {
		return base + oidcTokenPath, nil
	}
	return discoverTokenEndpoint(ctx, s.client, base+oidcIssuerPath)
}

// FetchToken exchanges the service client credentials for a new token.
func (s *ServiceTokenSource) FetchToken(ctx context.Context, scopes []string) (*oauth2.Token, error) {
	if err := s.cfg.RequireService(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOrDefault(s.cfg.VerifyTimeout))
	defer cancel()

	tokenURL, err := s.TokenURL(ctx)
	if err != nil {
		return nil, &ServiceTokenError{Cause: err}
	}

	cc := clientcredentials.Config{
		ClientID:     s.cfg.ClientID,
		ClientSecret: s.cfg.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tok, err := cc.Token(context.WithValue(ctx, oauth2.HTTPClient, s.client))
	if err != nil {
		s.logger.Warn("client credentials exchange failed", "token_url", tokenURL, "err", err)
		return nil, &ServiceTokenError{Cause: err}
	}

	s.logger.Debug("service identity token obtained", "scopes", scopes, "expiry", tok.Expiry)
	return tok, nil
}

// Token returns a fresh service identity credential.
func (s *ServiceTokenSource) Token(ctx context.Context, scopes []string) (identity.Credential, error) {
	tok, err := s.FetchToken(ctx, scopes)
	if err != nil {
		return identity.Credential{}, err
	}
	return identity.Credential{Token: tok.AccessToken, Class: identity.ServiceIdentityToken}, nil
}
