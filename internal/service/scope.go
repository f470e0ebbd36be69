package service

import (
	"strings"

	"github.com/triagehq/request-triage/internal/repository"
	apperrors "github.com/triagehq/request-triage/pkg/util"
)

// ScopeKind selects which slice of the ticket collection a query sees.
type ScopeKind string

const (
	ScopeAll  ScopeKind = "all"
	ScopeMine ScopeKind = "my"
	ScopeTeam ScopeKind = "team"
)

// Scope restricts the visible ticket set for listing and analytics. Scopes
// are applied as filters before aggregation, never after.
type Scope struct {
	Kind  ScopeKind
	Email string
	Team  string
}

// ParseScope validates query parameters into a Scope.
func ParseScope(kind, email, team string) (Scope, error) {
	switch ScopeKind(strings.ToLower(strings.TrimSpace(kind))) {
	case ScopeAll, "":
		return Scope{Kind: ScopeAll}, nil
	case ScopeMine:
		email = strings.TrimSpace(email)
		if email == "" {
			return Scope{}, apperrors.NewValidationError("scope=my requires email", nil)
		}
		return Scope{Kind: ScopeMine, Email: email}, nil
	case ScopeTeam:
		team = strings.TrimSpace(team)
		if team == "" {
			return Scope{}, apperrors.NewValidationError("scope=team requires team", nil)
		}
		return Scope{Kind: ScopeTeam, Team: team}, nil
	}
	return Scope{}, apperrors.NewValidationError("scope must be one of my, team, all", map[string]any{"scope": kind})
}

// Filter translates the scope into a repository filter.
func (s Scope) Filter() repository.TicketFilter {
	filter := repository.TicketFilter{}
	switch s.Kind {
	case ScopeMine:
		email := s.Email
		filter.RequesterEmail = &email
	case ScopeTeam:
		team := s.Team
		filter.AssignedTeam = &team
	}
	return filter
}
