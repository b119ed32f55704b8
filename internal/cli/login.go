package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/brporter/lakegate/internal/auth"
	"github.com/brporter/lakegate/internal/config"
	"github.com/brporter/lakegate/internal/identity"
)

// Login obtains a service identity token with the client-credentials grant
// and caches it for later calls.
func Login(ctx context.Context, cfg *config.Config, scopes []string, out io.Writer, logger *slog.Logger) (*TokenCache, error) {
	src := auth.NewServiceTokenSource(cfg, nil, logger)

	tok, err := src.FetchToken(ctx, scopes)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	host, _ := cfg.BaseURL()
	cache := &TokenCache{
		AccessToken: tok.AccessToken,
		Expiry:      tok.Expiry,
		Host:        host,
		ClientID:    cfg.ClientID,
		Scopes:      scopes,
	}
	if err := SaveTokenCache(cache); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}

	fmt.Fprintf(out, "Token prefix:  %s\n", identity.Mask(tok.AccessToken))
	if !tok.Expiry.IsZero() {
		fmt.Fprintf(out, "Expires at:    %s\n", tok.Expiry.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(out, "Authenticated successfully!\n")
	return cache, nil
}
