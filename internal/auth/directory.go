package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/brporter/lakegate/internal/config"
	"github.com/brporter/lakegate/internal/identity"
)

// DirectoryEntry is a user found by a directory search.
type DirectoryEntry struct {
	ID       string
	UserName string
	Groups   []string
}

// Directory searches the SCIM user directory. It needs a service identity
// token with directory-read privilege.
type Directory struct {
	cfg    *config.Config
	client *http.Client
	logger *slog.Logger
}

// NewDirectory creates a directory client. A nil client uses
// http.DefaultClient.
func NewDirectory(cfg *config.Config, client *http.Client, logger *slog.Logger) *Directory {
	if client == nil {
		client = http.DefaultClient
	}
	return &Directory{cfg: cfg, client: client, logger: logger}
}

// FindUser looks up userName and returns the first matching resource, or nil
// when there is no match. Further matches are ignored.
func (d *Directory) FindUser(ctx context.Context, cred identity.Credential, userName string) (*DirectoryEntry, error) {
	base, err := d.cfg.BaseURL()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOrDefault(d.cfg.VerifyTimeout))
	defer cancel()

	q := url.Values{"filter": {userNameFilter(userName)}}
	var list scimListResponse
	status, err := getJSON(ctx, d.client, base+scimUsersPath+"?"+q.Encode(), cred.Token, &list)
	if err != nil {
		return nil, &DirectoryError{StatusCode: status, Cause: err}
	}

	if len(list.Resources) == 0 {
		d.logger.Debug("directory search found no user", "user", userName)
		return nil, nil
	}
	if len(list.Resources) > 1 {
		d.logger.Debug("directory search matched several users, using first", "user", userName, "matches", len(list.Resources))
	}

	u := list.Resources[0]
	return &DirectoryEntry{
		ID:       u.ID,
		UserName: u.UserName,
		Groups:   groupNames(u.Groups),
	}, nil
}

func userNameFilter(userName string) string {
	escaped := strings.ReplaceAll(userName, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return fmt.Sprintf(`userName eq "%s"`, escaped)
}
