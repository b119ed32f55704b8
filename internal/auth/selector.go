package auth

import (
	"context"

	"github.com/brporter/lakegate/internal/config"
	"github.com/brporter/lakegate/internal/identity"
)

// State is the point the per-request decision stopped at.
type State int

const (
	StateNoToken State = iota
	StateDelegatedTokenPresent
	StateCallerSuppliedTokenPresent
	StateTargetUserRequested
)

func (s State) String() string {
	switch s {
	case StateDelegatedTokenPresent:
		return "delegated_token"
	case StateCallerSuppliedTokenPresent:
		return "caller_supplied_token"
	case StateTargetUserRequested:
		return "target_user"
	default:
		return "no_token"
	}
}

// Method names the credential a downstream action runs with.
type Method string

const (
	MethodUserToken        Method = "user_token"
	MethodVerifiedToken    Method = "verified_token"
	MethodServicePrincipal Method = "service_principal"
)

// Decision is the credential chosen for one request.
type Decision struct {
	State State
	// Credential is nil on the service principal path; downstream components
	// then authenticate with their own service credential provider.
	Credential *identity.Credential
	Method     Method
	Verified   bool
	TargetUser string
}

// NeedsVerification reports whether the credential must be verified before
// anything is done with it.
func (d Decision) NeedsVerification() bool {
	return d.State == StateCallerSuppliedTokenPresent && !d.Verified
}

// Selector decides which credential a privileged request acts with.
type Selector struct {
	cfg *config.Config
}

// NewSelector creates a selector over cfg.
func NewSelector(cfg *config.Config) Selector {
	return Selector{cfg: cfg}
}

// Select applies the decision table; the first matching rule wins:
//
//  1. proxy-forwarded delegated token
//  2. caller-supplied token, unverified until Resolver.Confirm succeeds
//  3. explicit target user, acted on with the service identity
//  4. nothing usable: InputError
//
// Select performs no I/O.
func (s Selector) Select(sig identity.Signals) (Decision, error) {
	switch {
	case sig.DelegatedToken != "":
		return Decision{
			State:      StateDelegatedTokenPresent,
			Credential: &identity.Credential{Token: sig.DelegatedToken, Class: identity.DelegatedUserToken},
			Method:     MethodUserToken,
		}, nil

	case sig.CallerToken != "":
		return Decision{
			State:      StateCallerSuppliedTokenPresent,
			Credential: &identity.Credential{Token: sig.CallerToken, Class: identity.NotebookNativeToken},
			Method:     MethodVerifiedToken,
		}, nil

	case sig.TargetUser != "":
		d := Decision{
			State:      StateTargetUserRequested,
			Method:     MethodServicePrincipal,
			TargetUser: sig.TargetUser,
		}
		if err := s.cfg.RequireService(); err != nil {
			return d, err
		}
		return d, nil
	}

	return Decision{State: StateNoToken}, &InputError{
		Reason: "no user token found: send " + identity.HeaderForwardedAccessToken + " or " +
			identity.HeaderUserToken + ", or name the user in " + identity.HeaderUserEmail,
		Err: ErrNoCredential,
	}
}

// TokenVerifier confirms the owner of a bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, cred identity.Credential) (*Principal, error)
}

// Resolver runs verification round-trips for token-bearing decisions.
type Resolver struct {
	verifier TokenVerifier
}

// NewResolver creates a resolver.
func NewResolver(v TokenVerifier) *Resolver {
	return &Resolver{verifier: v}
}

// Confirm verifies the decision's credential and marks it verified. A failed
// verification is returned as-is; it never falls back to another credential.
func (r *Resolver) Confirm(ctx context.Context, d Decision) (Decision, *Principal, error) {
	if d.Credential == nil {
		return d, nil, &InputError{Reason: "no user token to verify", Err: ErrNoCredential}
	}
	p, err := r.verifier.Verify(ctx, *d.Credential)
	if err != nil {
		return d, nil, err
	}
	d.Verified = true
	return d, p, nil
}
