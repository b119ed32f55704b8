package identity

import "fmt"

// TrustClass says where a bearer token came from and how far it is trusted.
type TrustClass int

const (
	// DelegatedUserToken is forwarded by the trusted proxy and represents the
	// calling human.
	DelegatedUserToken TrustClass = iota + 1
	// NotebookNativeToken is supplied by the caller and must be verified
	// before it is trusted.
	NotebookNativeToken
	// ServiceIdentityToken comes from a client-credentials grant for the
	// gateway itself.
	ServiceIdentityToken
)

func (c TrustClass) String() string {
	switch c {
	case DelegatedUserToken:
		return "delegated"
	case NotebookNativeToken:
		return "caller_supplied"
	case ServiceIdentityToken:
		return "service_identity"
	default:
		return "unknown"
	}
}

// Credential is a bearer token together with its trust class.
type Credential struct {
	Token string
	Class TrustClass
}

// String redacts the token.
func (c Credential) String() string {
	return fmt.Sprintf("%s(%s)", c.Class, Mask(c.Token))
}

// Mask hides all but a short prefix of a secret.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "***"
}
