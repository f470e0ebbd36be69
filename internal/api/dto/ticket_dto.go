package dto

import (
	"time"

	"github.com/triagehq/request-triage/internal/domain"
)

// SubmitTicketRequest payload.
type SubmitTicketRequest struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	Department        string `json:"department"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	AffectedSystem    string `json:"affectedSystem"`
	IsBlocking        bool   `json:"isBlocking"`
	RequestedTimeline string `json:"requestedTimeline"`
	TryKBFirst        bool   `json:"tryKbFirst"`
}

// KnowledgeSuggestionResponse is one KB pointer from triage.
type KnowledgeSuggestionResponse struct {
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// SubmitTicketResponse is the submission receipt shown to the requester.
type SubmitTicketResponse struct {
	ID                   string                        `json:"id"`
	Status               domain.TicketStatus           `json:"status"`
	AssignedTeam         string                        `json:"assignedTeam"`
	Priority             domain.TicketPriority         `json:"priority"`
	SLADueAt             time.Time                     `json:"slaDueAt"`
	SLAStatus            domain.SLAStatus              `json:"slaStatus"`
	KnowledgeSuggestions []KnowledgeSuggestionResponse `json:"knowledgeSuggestions"`
}

// TicketResponse is the full ticket representation used by list views and
// update responses.
type TicketResponse struct {
	ID                  string                   `json:"id"`
	Title               string                   `json:"title"`
	Description         string                   `json:"description"`
	AffectedSystem      string                   `json:"affected_system"`
	RequestedTimeline   domain.RequestedTimeline `json:"requested_timeline"`
	IsBlocking          bool                     `json:"is_blocking"`
	TryKBFirst          bool                     `json:"try_kb_first"`
	AssignedTeam        string                   `json:"assigned_team"`
	Priority            domain.TicketPriority    `json:"priority"`
	Status              domain.TicketStatus      `json:"status"`
	RequesterEmail      string                   `json:"requester_email"`
	RequesterName       string                   `json:"requester_name"`
	RequesterDepartment string                   `json:"requester_department"`
	AISummaryProblem    string                   `json:"ai_summary_problem"`
	AISummaryImpact     string                   `json:"ai_summary_impact"`
	AISummaryAction     string                   `json:"ai_summary_action"`
	SLADueAt            time.Time                `json:"sla_due_at"`
	SLAStatus           domain.SLAStatus         `json:"sla_status"`
	CreatedAt           time.Time                `json:"created_at"`
	UpdatedAt           time.Time                `json:"updated_at"`
}

// ListTicketsResponse wraps a scoped listing.
type ListTicketsResponse struct {
	Tickets []TicketResponse `json:"tickets"`
}

// UpdateTicketRequest is a batched patch. Absent fields are untouched.
type UpdateTicketRequest struct {
	ActorEmail   string  `json:"actorEmail"`
	Status       *string `json:"status"`
	Priority     *string `json:"priority"`
	AssignedTeam *string `json:"assignedTeam"`
	Comment      *string `json:"comment"`
}

// UpdateTicketResponse carries the committed snapshot plus any per-field
// rejections from a mixed patch.
type UpdateTicketResponse struct {
	Ticket         TicketResponse    `json:"ticket"`
	Comment        *CommentResponse  `json:"comment,omitempty"`
	RejectedFields map[string]string `json:"rejectedFields,omitempty"`
}

// CommentAuthor identifies a comment's author.
type CommentAuthor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CommentResponse is one comment in a ticket thread.
type CommentResponse struct {
	ID        string        `json:"id"`
	Author    CommentAuthor `json:"author"`
	Body      string        `json:"body"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ListCommentsResponse wraps a ticket's comment thread.
type ListCommentsResponse struct {
	Comments []CommentResponse `json:"comments"`
}

// ActivityActor identifies who caused a timeline entry.
type ActivityActor struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// ActivityEntryResponse is one timeline entry.
type ActivityEntryResponse struct {
	ID        string              `json:"id"`
	Type      domain.ActivityType `json:"type"`
	Actor     ActivityActor       `json:"actor"`
	OldValue  map[string]any      `json:"oldValue,omitempty"`
	NewValue  map[string]any      `json:"newValue,omitempty"`
	Summary   string              `json:"summary"`
	CreatedAt time.Time           `json:"createdAt"`
}

// ActivityResponse wraps a ticket's timeline.
type ActivityResponse struct {
	TicketID string                  `json:"ticketId"`
	Timeline []ActivityEntryResponse `json:"timeline"`
}
