// Package idptest runs a fake identity provider for tests: SCIM /Me and
// /Users, the OAuth token endpoint, and an OIDC discovery document.
package idptest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
)

// Default service identity credentials accepted by the token endpoint.
const (
	ClientID     = "sp-client"
	ClientSecret = "sp-secret"
	ServiceToken = "sp-access-token"
)

// Group is a SCIM group reference. An empty Display is omitted from the
// JSON, as directories do for partial data.
type Group struct {
	Display string `json:"display,omitempty"`
	Value   string `json:"value"`
}

// User is a SCIM user resource.
type User struct {
	ID          string  `json:"id"`
	UserName    string  `json:"userName"`
	DisplayName string  `json:"displayName,omitempty"`
	Groups      []Group `json:"groups,omitempty"`
}

// Server is a fake identity provider.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	tokens    map[string]User
	directory []User

	// Status overrides; zero means normal behavior.
	MeStatus    int
	UsersStatus int
	TokenStatus int

	meCalls    int
	usersCalls int
	tokenCalls int
	lastFilter string
	lastScope  string
}

var filterRE = regexp.MustCompile(`^userName eq "(.*)"$`)

// New starts a fake identity provider that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{tokens: make(map[string]User)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/2.0/preview/scim/v2/Me", s.handleMe)
	mux.HandleFunc("GET /api/2.0/preview/scim/v2/Users", s.handleUsers)
	mux.HandleFunc("POST /oidc/v1/token", s.handleToken)
	mux.HandleFunc("POST /oidc/v1/discovered-token", s.handleToken)
	mux.HandleFunc("GET /oidc/.well-known/openid-configuration", s.handleDiscovery)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// AddToken makes /Me answer with u for the given bearer token.
func (s *Server) AddToken(token string, u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = u
}

// AddDirectoryUser appends u to the directory searched by /Users. Order is
// preserved in search results.
func (s *Server) AddDirectoryUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.directory = append(s.directory, u)
}

func (s *Server) MeCalls() int    { s.mu.Lock(); defer s.mu.Unlock(); return s.meCalls }
func (s *Server) UsersCalls() int { s.mu.Lock(); defer s.mu.Unlock(); return s.usersCalls }
func (s *Server) TokenCalls() int { s.mu.Lock(); defer s.mu.Unlock(); return s.tokenCalls }

// LastFilter returns the filter of the most recent /Users request.
func (s *Server) LastFilter() string { s.mu.Lock(); defer s.mu.Unlock(); return s.lastFilter }

// LastScope returns the scope of the most recent token request.
func (s *Server) LastScope() string { s.mu.Lock(); defer s.mu.Unlock(); return s.lastScope }

// TotalCalls counts every request served.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meCalls + s.usersCalls + s.tokenCalls
}

func bearer(r *http.Request) string {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.meCalls++
	status := s.MeStatus
	u, ok := s.tokens[bearer(r)]
	s.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"detail": "forced failure"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error_code": "401", "message": "Credential was not sent or was of an unsupported type"})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")

	s.mu.Lock()
	s.usersCalls++
	s.lastFilter = filter
	status := s.UsersStatus
	directory := append([]User(nil), s.directory...)
	s.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"detail": "forced failure"})
		return
	}
	if bearer(r) != ServiceToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
		return
	}

	var matches []User
	if m := filterRE.FindStringSubmatch(filter); m != nil {
		want := strings.ReplaceAll(m[1], `\"`, `"`)
		for _, u := range directory {
			if u.UserName == want {
				matches = append(matches, u)
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"totalResults": len(matches),
		"Resources":    matches,
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()

	s.mu.Lock()
	s.tokenCalls++
	s.lastScope = r.PostForm.Get("scope")
	status := s.TokenStatus
	s.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"error": "server_error"})
		return
	}
	if r.PostForm.Get("grant_type") != "client_credentials" ||
		r.PostForm.Get("client_id") != ClientID ||
		r.PostForm.Get("client_secret") != ClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": ServiceToken,
		"token_type":   "Bearer",
		"expires_in":   3600,
		"scope":        r.PostForm.Get("scope"),
	})
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	issuer := s.URL + "/oidc"
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                issuer,
		"authorization_endpoint":                issuer + "/v1/authorize",
		"token_endpoint":                        issuer + "/v1/discovered-token",
		"jwks_uri":                              issuer + "/v1/keys",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}
