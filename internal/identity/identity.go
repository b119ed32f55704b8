// Package identity models the caller identity asserted by the reverse proxy
// in front of the gateway, and the bearer credentials a request may carry.
package identity

import (
	"net/http"
	"strings"
)

// Headers injected by the platform proxy or supplied by programmatic callers.
const (
	HeaderForwardedUser              = "X-Forwarded-User"
	HeaderForwardedEmail             = "X-Forwarded-Email"
	HeaderForwardedPreferredUsername = "X-Forwarded-Preferred-Username"
	HeaderForwardedAccessToken       = "X-Forwarded-Access-Token"
	HeaderUserToken                  = "X-User-Token"
	HeaderUserEmail                  = "X-User-Email"
)

// RequestIdentity is the identity asserted by the trusted proxy. It is never
// independently verified.
type RequestIdentity struct {
	User              *string `json:"user"`
	Email             *string `json:"email"`
	PreferredUsername *string `json:"preferred_username"`
	HasDelegatedToken bool    `json:"is_authenticated"`
}

// Signals is everything the gateway reads from an inbound request to decide
// how to authenticate it.
type Signals struct {
	Identity       RequestIdentity
	DelegatedToken string // x-forwarded-access-token
	CallerToken    string // x-user-token
	TargetUser     string // x-user-email
}

// FromHeader builds the proxy-asserted identity. Missing headers yield nil
// fields.
func FromHeader(h http.Header) RequestIdentity {
	return RequestIdentity{
		User:              optional(h, HeaderForwardedUser),
		Email:             optional(h, HeaderForwardedEmail),
		PreferredUsername: optional(h, HeaderForwardedPreferredUsername),
		HasDelegatedToken: value(h, HeaderForwardedAccessToken) != "",
	}
}

// Extract reads all identity signals from the request headers.
func Extract(h http.Header) Signals {
	return Signals{
		Identity:       FromHeader(h),
		DelegatedToken: value(h, HeaderForwardedAccessToken),
		CallerToken:    value(h, HeaderUserToken),
		TargetUser:     value(h, HeaderUserEmail),
	}
}

func optional(h http.Header, key string) *string {
	vals := h.Values(key)
	if len(vals) == 0 {
		return nil
	}
	v := vals[0]
	return &v
}

func value(h http.Header, key string) string {
	return strings.TrimSpace(h.Get(key))
}
