package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/triagehq/request-triage/internal/domain"
)

const ticketColumns = `id, title, description, affected_system, requested_timeline, is_blocking,
               try_kb_first, assigned_team, priority, status, requester_email, requester_name,
               requester_department, ai_summary_problem, ai_summary_impact, ai_summary_action,
               sla_due_at, created_at, updated_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates a Postgres-backed repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, affected_system, requested_timeline, is_blocking,
            try_kb_first, assigned_team, priority, status, requester_email, requester_name,
            requester_department, ai_summary_problem, ai_summary_impact, ai_summary_action, sla_due_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.AffectedSystem,
		ticket.RequestedTimeline,
		ticket.IsBlocking,
		ticket.TryKBFirst,
		ticket.AssignedTeam,
		ticket.Priority,
		ticket.Status,
		ticket.RequesterEmail,
		ticket.RequesterName,
		ticket.RequesterDept,
		ticket.AISummaryProblem,
		ticket.AISummaryImpact,
		ticket.AISummaryAction,
		ticket.SLADueAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequesterEmail != nil {
		args = append(args, strings.ToLower(*filter.RequesterEmail))
		clauses = append(clauses, fmt.Sprintf("LOWER(requester_email)=$%d", len(args)))
	}
	if filter.AssignedTeam != nil {
		args = append(args, *filter.AssignedTeam)
		clauses = append(clauses, fmt.Sprintf("assigned_team=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

// UpdateAtomic locks the ticket row, applies the patch, and commits the
// updated row together with any comment and activity side effects.
func (r *ticketRepository) UpdateAtomic(ctx context.Context, id string, apply func(*domain.Ticket) (*UpdateSideEffects, error)) (*domain.Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1 FOR UPDATE`, ticketColumns)
	ticket, err := scanTicket(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	effects, err := apply(ticket)
	if err != nil {
		return nil, err
	}

	const update = `
        UPDATE tickets SET assigned_team=$1, priority=$2, status=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	if err := tx.QueryRow(ctx, update,
		ticket.AssignedTeam,
		ticket.Priority,
		ticket.Status,
		ticket.ID,
	).Scan(&ticket.UpdatedAt); err != nil {
		return nil, err
	}

	if effects != nil && effects.Comment != nil {
		c := effects.Comment
		const insertComment = `
            INSERT INTO ticket_comments (ticket_id, author_id, author_email, author_name, body)
            VALUES ($1,$2,$3,$4,$5)
            RETURNING id, created_at`
		if err := tx.QueryRow(ctx, insertComment,
			c.TicketID, nullable(c.AuthorID), c.AuthorEmail, c.AuthorName, c.Body,
		).Scan(&c.ID, &c.CreatedAt); err != nil {
			return nil, err
		}
	}
	if effects != nil && effects.Activity != nil {
		a := effects.Activity
		const insertActivity = `
            INSERT INTO ticket_activity (ticket_id, actor_email, actor_name, activity_type, old_value, new_value, summary)
            VALUES ($1,$2,$3,$4,$5,$6,$7)
            RETURNING id, created_at`
		if err := tx.QueryRow(ctx, insertActivity,
			a.TicketID, a.ActorEmail, a.ActorName, a.Type, a.OldValue, a.NewValue, a.Summary,
		).Scan(&a.ID, &a.CreatedAt); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.AffectedSystem,
		&ticket.RequestedTimeline,
		&ticket.IsBlocking,
		&ticket.TryKBFirst,
		&ticket.AssignedTeam,
		&ticket.Priority,
		&ticket.Status,
		&ticket.RequesterEmail,
		&ticket.RequesterName,
		&ticket.RequesterDept,
		&ticket.AISummaryProblem,
		&ticket.AISummaryImpact,
		&ticket.AISummaryAction,
		&ticket.SLADueAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
