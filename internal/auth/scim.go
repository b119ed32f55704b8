package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	scimMePath    = "/api/2.0/preview/scim/v2/Me"
	scimUsersPath = "/api/2.0/preview/scim/v2/Users"

	maxResponseBytes = 1 << 20
)

type scimEmail struct {
	Value   string `json:"value"`
	Primary bool   `json:"primary"`
}

type scimGroupRef struct {
	Display string `json:"display"`
	Value   string `json:"value"`
}

type scimUser struct {
	ID          string         `json:"id"`
	UserName    string         `json:"userName"`
	DisplayName string         `json:"displayName"`
	Emails      []scimEmail    `json:"emails"`
	Groups      []scimGroupRef `json:"groups"`
}

type scimListResponse struct {
	TotalResults int        `json:"totalResults"`
	Resources    []scimUser `json:"Resources"`
}

// groupNames returns display names in provider order. Entries without a
// display name are dropped; directories often return partial data.
func groupNames(refs []scimGroupRef) []string {
	names := make([]string, 0, len(refs))
	for _, g := range refs {
		if g.Display == "" {
			continue
		}
		names = append(names, g.Display)
	}
	return names
}

// canonicalEmail prefers userName, then the primary email, then any email.
func (u *scimUser) canonicalEmail() string {
	if u.UserName != "" {
		return u.UserName
	}
	for _, e := range u.Emails {
		if e.Primary && e.Value != "" {
			return e.Value
		}
	}
	for _, e := range u.Emails {
		if e.Value != "" {
			return e.Value
		}
	}
	return ""
}

// getJSON performs an authenticated GET and decodes a 200 response into out.
// It returns the HTTP status code when the server was reached.
func getJSON(ctx context.Context, client *http.Client, url, token string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/scim+json, application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, &statusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
