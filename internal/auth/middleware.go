package auth

import (
	"log/slog"
	"net/http"

	"github.com/brporter/lakegate/internal/identity"
)

// Middleware extracts the identity signals from the request headers and
// injects them into the context. It never rejects a request: which signals
// are required is decided per endpoint.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sig := identity.Extract(r.Header)

			logger.Debug("identity signals",
				"path", r.URL.Path,
				"delegated_token", sig.DelegatedToken != "",
				"caller_token", sig.CallerToken != "",
				"target_user", sig.TargetUser != "",
			)

			ctx := identity.WithSignals(r.Context(), sig)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SignalsFromRequest returns the signals injected by Middleware, extracting
// them from the headers when the middleware did not run.
func SignalsFromRequest(r *http.Request) identity.Signals {
	if sig, ok := identity.SignalsFromContext(r.Context()); ok {
		return sig
	}
	return identity.Extract(r.Header)
}
