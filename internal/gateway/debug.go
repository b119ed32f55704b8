package gateway

import (
	"net/http"
	"sort"
	"strings"

	"github.com/brporter/lakegate/internal/auth"
	"github.com/brporter/lakegate/internal/identity"
)

var tokenHeaders = map[string]bool{
	identity.HeaderForwardedAccessToken: true,
	identity.HeaderUserToken:            true,
}

type tokenSummary struct {
	Header  string          `json:"header"`
	Prefix  string          `json:"prefix"`
	Opaque  bool            `json:"opaque"`
	Claims  *auth.TokenInfo `json:"claims,omitempty"`
	Expired bool            `json:"expired"`
}

type debugResponse struct {
	Headers  map[string]string        `json:"headers"`
	Tokens   []tokenSummary           `json:"tokens"`
	UserInfo identity.RequestIdentity `json:"user_info"`
}

// HandleDebugHeaders shows the forwarded identity headers as the gateway
// sees them. Token values are masked; JWT claims are decoded without
// verification.
func (s *Server) HandleDebugHeaders(w http.ResponseWriter, r *http.Request) {
	resp := debugResponse{
		Headers:  make(map[string]string),
		Tokens:   []tokenSummary{},
		UserInfo: auth.SignalsFromRequest(r).Identity,
	}

	for name, vals := range r.Header {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, "x-forwarded-") && !strings.HasPrefix(lower, "x-user-") {
			continue
		}
		v := strings.Join(vals, ", ")
		if tokenHeaders[name] {
			resp.Headers[lower] = identity.Mask(v)
			resp.Tokens = append(resp.Tokens, s.summarize(name, strings.TrimSpace(vals[0])))
			continue
		}
		resp.Headers[lower] = v
	}

	sort.Slice(resp.Tokens, func(i, j int) bool { return resp.Tokens[i].Header < resp.Tokens[j].Header })
	s.writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) summarize(header, token string) tokenSummary {
	sum := tokenSummary{Header: strings.ToLower(header), Prefix: identity.Mask(token)}
	info, err := auth.InspectToken(token)
	if err != nil {
		sum.Opaque = true
		return sum
	}
	sum.Claims = info
	sum.Expired = info.Expired(s.now())
	return sum
}
