package auth

import (
	"errors"
	"fmt"

	"github.com/brporter/lakegate/internal/identity"
)

// ErrNoToken is returned when a verification is attempted without a token.
var ErrNoToken = errors.New("no authentication token provided")

// ErrNoCredential is returned when a privileged action has no usable
// credential to act with.
var ErrNoCredential = errors.New("no usable credential")

// VerificationError reports a failed round-trip to the identity endpoint.
// Class tells the caller whether the token was caller-supplied (the caller's
// fault) or forwarded by the proxy (a platform fault).
type VerificationError struct {
	Class      identity.TrustClass
	StatusCode int // 0 when the endpoint was not reached
	Cause      error
}

func (e *VerificationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("identity verification failed for %s token (HTTP %d): %v", e.Class, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("identity verification failed for %s token: %v", e.Class, e.Cause)
}

func (e *VerificationError) Unwrap() error { return e.Cause }

// InputError is a client error: the request lacks something it must supply.
type InputError struct {
	Reason string
	Err    error
}

func (e *InputError) Error() string { return e.Reason }

func (e *InputError) Unwrap() error { return e.Err }

// DirectoryError reports a failed directory search.
type DirectoryError struct {
	StatusCode int
	Cause      error
}

func (e *DirectoryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("directory search failed (HTTP %d): %v", e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("directory search failed: %v", e.Cause)
}

func (e *DirectoryError) Unwrap() error { return e.Cause }

// ServiceTokenError reports a failed client-credentials exchange.
type ServiceTokenError struct {
	Cause error
}

func (e *ServiceTokenError) Error() string {
	return fmt.Sprintf("obtain service identity token: %v", e.Cause)
}

func (e *ServiceTokenError) Unwrap() error { return e.Cause }

// statusError carries a non-200 response from the identity provider.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}
