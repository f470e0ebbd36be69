package events

import (
	"time"

	"github.com/triagehq/request-triage/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketSubmitted    EventType = "ticket_submitted"
	EventTicketUpdated      EventType = "ticket_updated"
	EventTicketCommentAdded EventType = "ticket_comment_added"
	EventUserRoleChanged    EventType = "user_role_changed"
)

// Actor identifies who caused an event.
type Actor struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketSubmittedPayload payload.
type TicketSubmittedPayload struct {
	Title        string                `json:"title"`
	AssignedTeam string                `json:"assigned_team"`
	Priority     domain.TicketPriority `json:"priority"`
	SLADueAt     time.Time             `json:"sla_due_at"`
	Fallback     bool                  `json:"fallback_classification"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	OldValue map[string]any `json:"old_value"`
	NewValue map[string]any `json:"new_value"`
	Summary  string         `json:"summary"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	BodyPreview string `json:"body_preview"`
}

// UserRoleChangedPayload payload.
type UserRoleChangedPayload struct {
	Email   string          `json:"email"`
	OldRole domain.UserRole `json:"old_role"`
	NewRole domain.UserRole `json:"new_role"`
}
