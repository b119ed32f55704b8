package gateway

import (
	"net/http"
	"time"

	"github.com/brporter/lakegate/internal/auth"
	"github.com/brporter/lakegate/internal/identity"
	"github.com/brporter/lakegate/internal/warehouse"
)

type healthResponse struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	UserInfo  identity.RequestIdentity `json:"user_info"`
}

type groupsResponse struct {
	UserInfo         identity.RequestIdentity `json:"user_info"`
	LookupEmail      string                   `json:"lookup_email"`
	Groups           []string                 `json:"groups"`
	GroupCount       int                      `json:"group_count"`
	ScimAuthMethod   auth.Method              `json:"scim_auth_method"`
	IdentityVerified bool                     `json:"identity_verified"`
	LookupStatus     auth.LookupStatus        `json:"lookup_status"`
}

type tripsResponse struct {
	Count    int                      `json:"count"`
	Results  []warehouse.Record       `json:"results"`
	AuthMode string                   `json:"auth_mode"`
	UserInfo identity.RequestIdentity `json:"user_info"`
}

// HandleHealthcheck reports liveness along with the proxy-asserted identity.
func (s *Server) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	sig := auth.SignalsFromRequest(r)
	s.writeJSON(w, r, http.StatusOK, healthResponse{
		Status:    "OK",
		Timestamp: s.now().UTC(),
		UserInfo:  sig.Identity,
	})
}

// HandleMe echoes the proxy-asserted identity. It performs no verification
// and no network I/O.
func (s *Server) HandleMe(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, auth.SignalsFromRequest(r).Identity)
}

// HandleMeGroups resolves group memberships for the caller, or for the user
// named in x-user-email via the directory.
func (s *Server) HandleMeGroups(w http.ResponseWriter, r *http.Request) {
	sig := auth.SignalsFromRequest(r)

	d, err := s.selector.Select(sig)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.svc.Metrics.IncDecision(string(d.Method))

	res, err := s.svc.Groups.Lookup(r.Context(), d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, groupsResponse{
		UserInfo:         sig.Identity,
		LookupEmail:      res.LookupEmail,
		Groups:           res.Groups,
		GroupCount:       len(res.Groups),
		ScimAuthMethod:   res.Method,
		IdentityVerified: res.Verified,
		LookupStatus:     res.Status,
	})
}

// HandleTrips runs the configured query under the selected credential.
func (s *Server) HandleTrips(w http.ResponseWriter, r *http.Request) {
	sig := auth.SignalsFromRequest(r)

	d, err := s.selector.Select(sig)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.svc.Metrics.IncDecision(string(d.Method))

	if err := s.svc.Queries.CheckConfig(); err != nil {
		s.writeError(w, r, err)
		return
	}

	if d.NeedsVerification() {
		d, _, err = s.svc.Resolver.Confirm(r.Context(), d)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	res, err := s.svc.Queries.Run(r.Context(), d.Credential)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, tripsResponse{
		Count:    len(res.Rows),
		Results:  res.Rows,
		AuthMode: res.Mode,
		UserInfo: sig.Identity,
	})
}
