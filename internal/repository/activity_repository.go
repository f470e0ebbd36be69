package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/triagehq/request-triage/internal/domain"
)

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository returns a Postgres-backed implementation.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Create(ctx context.Context, entry *domain.ActivityEntry) error {
	const query = `
        INSERT INTO ticket_activity (ticket_id, actor_email, actor_name, activity_type, old_value, new_value, summary)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.ActorEmail,
		entry.ActorName,
		entry.Type,
		entry.OldValue,
		entry.NewValue,
		entry.Summary,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *activityRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityEntry, error) {
	const query = `
        SELECT id, ticket_id, actor_email, actor_name, activity_type, old_value, new_value, summary, created_at
        FROM ticket_activity WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ActivityEntry
	for rows.Next() {
		var entry domain.ActivityEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ActorEmail,
			&entry.ActorName,
			&entry.Type,
			&entry.OldValue,
			&entry.NewValue,
			&entry.Summary,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
