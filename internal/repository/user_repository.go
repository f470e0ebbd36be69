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

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (email, name, department, role)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		strings.ToLower(user.Email),
		user.Name,
		user.Department,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, department=$2, role=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		user.Name,
		user.Department,
		user.Role,
		user.ID,
	).Scan(&user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id, email, name, department, role, created_at, updated_at
        FROM users WHERE email=$1`
	var user domain.User
	err := r.pool.QueryRow(ctx, query, strings.ToLower(email)).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Department,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 100
	}
	base := `SELECT id, email, name, department, role, created_at, updated_at FROM users`
	args := []any{}
	where := ""
	if q := strings.TrimSpace(query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		where = ` WHERE LOWER(email) LIKE $1 OR LOWER(name) LIKE $1`
	}
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`%s%s ORDER BY email ASC LIMIT %d`, base, where, limit), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Name,
			&user.Department,
			&user.Role,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}
