package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/brporter/lakegate/internal/auth"
	"github.com/brporter/lakegate/internal/identity"
)

type errorBody struct {
	Detail string `json:"detail"`
}

// statusFor maps an error to its HTTP status. A rejected caller-supplied
// token is the caller's fault; a rejected proxy token is a platform fault.
func statusFor(err error) int {
	var (
		inputErr  *auth.InputError
		verifyErr *auth.VerificationError
	)
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.As(err, &verifyErr) && verifyErr.Class == identity.NotebookNativeToken:
		return http.StatusUnauthorized
	}
	// Configuration, directory, service token and query failures.
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := loggerFrom(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "err", err)
	} else {
		logger.Info("request rejected", "status", status, "err", err)
	}
	s.writeJSON(w, r, status, errorBody{Detail: err.Error()})
}

// writeJSON encodes v before committing the status. A value that cannot be
// encoded (NaN, +Inf) produces a 500 with the encoding error as detail.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		loggerFrom(r.Context(), s.logger).Error("encode response", "status", status, "err", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorBody{Detail: fmt.Sprintf("encode response: %v", err)})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
