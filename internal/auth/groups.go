package auth

import (
	"context"
	"log/slog"

	"github.com/brporter/lakegate/internal/identity"
)

// LookupStatus qualifies a group list. An empty list from the directory
// cannot tell "no groups" from "not allowed to see groups", so the status
// says which cases are possible. Self lookups with a verified token are
// always StatusOK.
type LookupStatus string

const (
	StatusOK              LookupStatus = "ok"
	StatusUserNotFound    LookupStatus = "user_not_found"
	StatusNoGroupsVisible LookupStatus = "no_groups_visible"
)

// GroupResult is the outcome of a group lookup.
type GroupResult struct {
	LookupEmail string
	Groups      []string
	Method      Method
	Verified    bool
	Status      LookupStatus
}

// ServiceTokens issues fresh service identity credentials.
type ServiceTokens interface {
	Token(ctx context.Context, scopes []string) (identity.Credential, error)
}

// DirectorySearcher finds a user by user name.
type DirectorySearcher interface {
	FindUser(ctx context.Context, cred identity.Credential, userName string) (*DirectoryEntry, error)
}

// GroupLookup resolves group memberships either from the caller's own
// verified token or from a directory search with the service identity.
type GroupLookup struct {
	resolver  *Resolver
	tokens    ServiceTokens
	directory DirectorySearcher
	scopes    []string
	logger    *slog.Logger
}

// NewGroupLookup creates a group lookup. scopes are requested for the
// service identity token used on the directory path.
func NewGroupLookup(resolver *Resolver, tokens ServiceTokens, directory DirectorySearcher, scopes []string, logger *slog.Logger) *GroupLookup {
	return &GroupLookup{
		resolver:  resolver,
		tokens:    tokens,
		directory: directory,
		scopes:    scopes,
		logger:    logger,
	}
}

// Lookup resolves groups for the decision. Token-bearing decisions always
// verify: a header-asserted identity is not proof of current membership.
func (g *GroupLookup) Lookup(ctx context.Context, d Decision) (*GroupResult, error) {
	switch d.State {
	case StateDelegatedTokenPresent, StateCallerSuppliedTokenPresent:
		d, p, err := g.resolver.Confirm(ctx, d)
		if err != nil {
			return nil, err
		}
		return &GroupResult{
			LookupEmail: p.Email,
			Groups:      p.Groups,
			Method:      d.Method,
			Verified:    d.Verified,
			Status:      StatusOK,
		}, nil

	case StateTargetUserRequested:
		return g.searchDirectory(ctx, d)
	}

	return nil, &InputError{Reason: "no user token or target user for group lookup", Err: ErrNoCredential}
}

func (g *GroupLookup) searchDirectory(ctx context.Context, d Decision) (*GroupResult, error) {
	cred, err := g.tokens.Token(ctx, g.scopes)
	if err != nil {
		return nil, err
	}

	res := &GroupResult{
		LookupEmail: d.TargetUser,
		Groups:      []string{},
		Method:      MethodServicePrincipal,
	}

	entry, err := g.directory.FindUser(ctx, cred, d.TargetUser)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		res.Status = StatusUserNotFound
		return res, nil
	}

	res.Groups = entry.Groups
	res.Status = statusFor(entry.Groups)
	if res.Status == StatusNoGroupsVisible {
		g.logger.Info("directory returned no groups; service identity may lack directory privilege", "user", d.TargetUser)
	}
	return res, nil
}

func statusFor(groups []string) LookupStatus {
	if len(groups) == 0 {
		return StatusNoGroupsVisible
	}
	return StatusOK
}
