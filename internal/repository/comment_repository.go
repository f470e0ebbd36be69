package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/triagehq/request-triage/internal/domain"
)

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository returns a Postgres-backed implementation.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, author_id, author_email, author_name, body)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		comment.TicketID,
		nullable(comment.AuthorID),
		comment.AuthorEmail,
		comment.AuthorName,
		comment.Body,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	const query = `
        SELECT id, ticket_id, author_id, author_email, author_name, body, created_at
        FROM ticket_comments WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		var authorID *string
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&authorID,
			&comment.AuthorEmail,
			&comment.AuthorName,
			&comment.Body,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		if authorID != nil {
			comment.AuthorID = *authorID
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
