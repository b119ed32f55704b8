package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/brporter/lakegate/internal/auth"
	"github.com/brporter/lakegate/internal/identity"
)

// Inspect prints what can be read from a token without contacting anyone.
// Opaque tokens only get their masked prefix printed.
func Inspect(w io.Writer, token string, now time.Time) error {
	fmt.Fprintf(w, "Token prefix:  %s\n", identity.Mask(token))

	info, err := auth.InspectToken(token)
	if errors.Is(err, auth.ErrOpaqueToken) {
		fmt.Fprintf(w, "Format:        opaque\n")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Format:        JWT (signature not checked)\n")
	printField(w, "Subject", info.Subject)
	printField(w, "Issuer", info.Issuer)
	printField(w, "Client ID", info.ClientID)
	printField(w, "Audience", strings.Join(info.Audience, " "))
	printField(w, "Scope", strings.Join(info.Scopes, " "))
	if !info.Expiry.IsZero() {
		state := "valid"
		if info.Expired(now) {
			state = "expired"
		}
		fmt.Fprintf(w, "%-15s%s (%s)\n", "Expires at:", info.Expiry.UTC().Format(time.RFC3339), state)
	}
	return nil
}

func printField(w io.Writer, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "%-15s%s\n", name+":", value)
}
