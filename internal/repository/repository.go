package repository

import (
	"context"
	"errors"
	"time"

	"github.com/triagehq/request-triage/internal/domain"
)

// ErrNotFound is returned when a requested entity does not exist. Both the
// Postgres and the in-memory implementations translate to this sentinel so
// services stay backend-agnostic.
var ErrNotFound = errors.New("not found")

// TicketFilter captures scoped listing parameters. Scope filters restrict
// the visible ticket set, not just reported totals.
type TicketFilter struct {
	RequesterEmail *string
	AssignedTeam   *string
	Limit          int
	Offset         int
}

// UpdateSideEffects carries records that must be persisted in the same
// atomic step as a ticket update.
type UpdateSideEffects struct {
	Comment  *domain.Comment
	Activity *domain.ActivityEntry
}

// TicketRepository encapsulates ticket persistence.
//
// UpdateAtomic serializes concurrent updates to the same ticket: apply runs
// against the current row under a per-ticket lock, and the mutated ticket
// plus side effects commit together or not at all. apply returning an error
// aborts without persisting anything.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	UpdateAtomic(ctx context.Context, id string, apply func(*domain.Ticket) (*UpdateSideEffects, error)) (*domain.Ticket, error)
}

// CommentRepository stores append-only ticket comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error)
}

// ActivityRepository stores the immutable ticket timeline.
type ActivityRepository interface {
	Create(ctx context.Context, entry *domain.ActivityEntry) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityEntry, error)
}

// UserRepository defines persistence access for identity records.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Search(ctx context.Context, query string, limit int) ([]domain.User, error)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
