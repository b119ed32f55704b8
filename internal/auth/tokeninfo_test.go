package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

func signTestJWT(t *testing.T, claims ...any) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.ES256, Key: key}, (&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		t.Fatal(err)
	}

	b := jwt.Signed(signer)
	for _, c := range claims {
		b = b.Claims(c)
	}
	raw, err := b.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestInspectToken(t *testing.T) {
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	raw := signTestJWT(t,
		jwt.Claims{
			Subject:  "u@x.com",
			Issuer:   "https://h/oidc",
			Audience: jwt.Audience{"lakegate"},
			IssuedAt: jwt.NewNumericDate(issued),
			Expiry:   jwt.NewNumericDate(issued.Add(time.Hour)),
		},
		map[string]any{"client_id": "sp-client", "scope": "all-apis offline_access"},
	)

	info, err := InspectToken(raw)
	if err != nil {
		t.Fatalf("InspectToken returned unexpected error: %v", err)
	}

	if info.Subject != "u@x.com" || info.Issuer != "https://h/oidc" || info.ClientID != "sp-client" {
		t.Errorf("unexpected claims: %+v", info)
	}
	if !slices.Equal(info.Audience, []string{"lakegate"}) {
		t.Errorf("Audience = %v", info.Audience)
	}
	if !slices.Equal(info.Scopes, []string{"all-apis", "offline_access"}) {
		t.Errorf("Scopes = %v", info.Scopes)
	}
	if !info.IssuedAt.Equal(issued) {
		t.Errorf("IssuedAt = %v, want %v", info.IssuedAt, issued)
	}
	if info.Expired(issued.Add(30 * time.Minute)) {
		t.Error("token reported expired before its expiry")
	}
	if !info.Expired(issued.Add(2 * time.Hour)) {
		t.Error("token not reported expired after its expiry")
	}
}

func TestInspectToken_AzpAndScpArray(t *testing.T) {
	raw := signTestJWT(t, map[string]any{
		"sub": "svc",
		"azp": "other-client",
		"scp": []string{"sql", "scim"},
	})

	info, err := InspectToken(raw)
	if err != nil {
		t.Fatalf("InspectToken returned unexpected error: %v", err)
	}
	if info.ClientID != "other-client" {
		t.Errorf("ClientID = %q, want other-client", info.ClientID)
	}
	if !slices.Equal(info.Scopes, []string{"sql", "scim"}) {
		t.Errorf("Scopes = %v", info.Scopes)
	}
	if !info.Expiry.IsZero() || info.Expired(time.Now()) {
		t.Errorf("token without exp should never expire: %+v", info)
	}
}

func TestInspectToken_Opaque(t *testing.T) {
	for _, raw := range []string{"dapi0123456789abcdef", "", "a.b"} {
		if _, err := InspectToken(raw); !errors.Is(err, ErrOpaqueToken) {
			t.Errorf("token %q: expected ErrOpaqueToken, got %v", raw, err)
		}
	}
}
