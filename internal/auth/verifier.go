package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/brporter/lakegate/internal/config"
	"github.com/brporter/lakegate/internal/identity"
)

// DefaultVerifyTimeout bounds identity and directory calls when the config
// does not set one.
const DefaultVerifyTimeout = 15 * time.Second

// Principal is a verified user: the identity provider confirmed the owner of
// the presented token.
type Principal struct {
	Email       string
	UserName    string
	DisplayName string
	Groups      []string
}

// Verifier confirms who owns a bearer token by calling the identity
// provider's SCIM /Me endpoint with it.
type Verifier struct {
	cfg    *config.Config
	client *http.Client
	logger *slog.Logger
}

// NewVerifier creates a verifier. A nil client uses http.DefaultClient.
func NewVerifier(cfg *config.Config, client *http.Client, logger *slog.Logger) *Verifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &Verifier{cfg: cfg, client: client, logger: logger}
}

// Verify performs one round-trip to the identity endpoint using cred as the
// bearer token.
func (v *Verifier) Verify(ctx context.Context, cred identity.Credential) (*Principal, error) {
	if cred.Token == "" {
		return nil, &VerificationError{Class: cred.Class, Cause: ErrNoToken}
	}
	base, err := v.cfg.BaseURL()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOrDefault(v.cfg.VerifyTimeout))
	defer cancel()

	var me scimUser
	status, err := getJSON(ctx, v.client, base+scimMePath, cred.Token, &me)
	if err != nil {
		v.logger.Warn("identity verification failed", "class", cred.Class.String(), "status", status, "err", err)
		return nil, &VerificationError{Class: cred.Class, StatusCode: status, Cause: err}
	}

	email := me.canonicalEmail()
	if email == "" {
		return nil, &VerificationError{
			Class:      cred.Class,
			StatusCode: status,
			Cause:      errors.New("identity endpoint returned no user name"),
		}
	}

	p := &Principal{
		Email:       email,
		UserName:    me.UserName,
		DisplayName: me.DisplayName,
		Groups:      groupNames(me.Groups),
	}
	v.logger.Debug("identity verified", "class", cred.Class.String(), "email", p.Email, "groups", len(p.Groups))
	return p, nil
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultVerifyTimeout
	}
	return d
}
