// Package classifier defines the contract with the external AI triage
// capability and the deterministic fallback used when it is unavailable.
package classifier

import (
	"context"

	"github.com/triagehq/request-triage/internal/domain"
)

// FallbackTeam is assigned when no classifier verdict is available.
const FallbackTeam = "Unassigned"

// Input is the free-text material the classifier works from.
type Input struct {
	Title             string
	Description       string
	AffectedSystem    string
	IsBlocking        bool
	RequestedTimeline domain.RequestedTimeline
}

// Result is the classifier's verdict for a new ticket.
type Result struct {
	AssignedTeam         string
	Priority             domain.TicketPriority
	KnowledgeSuggestions []domain.KnowledgeSuggestion
	SummaryProblem       string
	SummaryImpact        string
	SummaryAction        string
}

// Classifier proposes team, priority and KB suggestions for a submission.
// Implementations are black boxes; callers bound the call with a context
// deadline and fall back on error.
type Classifier interface {
	Classify(ctx context.Context, input Input) (*Result, error)
}

// Fallback returns the deterministic classification used when the adapter
// fails or times out: MEDIUM priority, unassigned team, no suggestions.
func Fallback() *Result {
	return &Result{
		AssignedTeam: FallbackTeam,
		Priority:     domain.TicketPriorityMedium,
	}
}

// Normalize clamps out-of-contract adapter output onto known enum values so
// a misbehaving model cannot inject an unknown priority or an empty team.
func Normalize(res *Result) *Result {
	if res == nil {
		return Fallback()
	}
	if !domain.ValidPriority(res.Priority) {
		res.Priority = domain.TicketPriorityMedium
	}
	if res.AssignedTeam == "" {
		res.AssignedTeam = FallbackTeam
	}
	return res
}
