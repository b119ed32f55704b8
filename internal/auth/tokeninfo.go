package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

// ErrOpaqueToken is returned by InspectToken for tokens that are not JWTs,
// such as personal access tokens.
var ErrOpaqueToken = errors.New("token is not a JWT")

var inspectAlgorithms = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.PS256, jose.PS384, jose.PS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.EdDSA, jose.HS256,
}

// TokenInfo summarizes the claims of a JWT access token. The signature is
// NOT checked; use it for diagnostics only, never for trust decisions.
type TokenInfo struct {
	Subject  string    `json:"sub,omitempty"`
	Issuer   string    `json:"iss,omitempty"`
	ClientID string    `json:"client_id,omitempty"`
	Audience []string  `json:"aud,omitempty"`
	Scopes   []string  `json:"scopes,omitempty"`
	IssuedAt time.Time `json:"iat,omitzero"`
	Expiry   time.Time `json:"exp,omitzero"`
}

// Expired reports whether the token had expired at now. Tokens without an
// exp claim never expire here.
func (t *TokenInfo) Expired(now time.Time) bool {
	return !t.Expiry.IsZero() && now.After(t.Expiry)
}

// InspectToken decodes the claims of raw without verifying it.
func InspectToken(raw string) (*TokenInfo, error) {
	tok, err := jwt.ParseSigned(raw, inspectAlgorithms)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpaqueToken, err)
	}

	var std jwt.Claims
	var extra struct {
		ClientID string          `json:"client_id"`
		Azp      string          `json:"azp"`
		Scope    json.RawMessage `json:"scope"`
		Scp      json.RawMessage `json:"scp"`
	}
	if err := tok.UnsafeClaimsWithoutVerification(&std, &extra); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}

	info := &TokenInfo{
		Subject:  std.Subject,
		Issuer:   std.Issuer,
		ClientID: extra.ClientID,
		Audience: []string(std.Audience),
		IssuedAt: std.IssuedAt.Time(),
		Expiry:   std.Expiry.Time(),
	}
	if info.ClientID == "" {
		info.ClientID = extra.Azp
	}
	info.Scopes = parseScopes(extra.Scope)
	if len(info.Scopes) == 0 {
		info.Scopes = parseScopes(extra.Scp)
	}
	return info, nil
}

// parseScopes accepts either a space separated string or a string array.
func parseScopes(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.Fields(s)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	return nil
}
