package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/callpool-service/internal/domain"
)

// ModeratorRepository handles persistence for moderators.
type ModeratorRepository interface {
	Create(ctx context.Context, moderator *domain.Moderator) error
	Update(ctx context.Context, moderator *domain.Moderator) error
	GetByID(ctx context.Context, id string) (*domain.Moderator, error)
	GetByContact(ctx context.Context, contact string) (*domain.Moderator, error)
	List(ctx context.Context, filter ModeratorFilter) ([]domain.Moderator, error)
}

// ModeratorFilter defines query params for moderator listing.
type ModeratorFilter struct {
	Role      *domain.ModeratorRole
	Partition *string
	Active    *bool
	Limit     int
	Offset    int
}

type moderatorRepository struct {
	pool *pgxpool.Pool
}

// NewModeratorRepository instantiates the repository.
func NewModeratorRepository(pool *pgxpool.Pool) ModeratorRepository {
	return &moderatorRepository{pool: pool}
}

func (r *moderatorRepository) Create(ctx context.Context, moderator *domain.Moderator) error {
	const query = `
        INSERT INTO moderators (display_name, contact, role, active_flag, daily_quota, partition)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		moderator.DisplayName,
		moderator.Contact,
		moderator.Role,
		moderator.Active,
		moderator.DailyQuota,
		moderator.Partition,
	).Scan(&moderator.ID, &moderator.CreatedAt, &moderator.UpdatedAt)
}

func (r *moderatorRepository) Update(ctx context.Context, moderator *domain.Moderator) error {
	const query = `
        UPDATE moderators
        SET display_name=$1, contact=$2, role=$3, active_flag=$4, daily_quota=$5, partition=$6, updated_at=NOW()
        WHERE id=$7`

	cmd, err := r.pool.Exec(ctx, query,
		moderator.DisplayName,
		moderator.Contact,
		moderator.Role,
		moderator.Active,
		moderator.DailyQuota,
		moderator.Partition,
		moderator.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *moderatorRepository) GetByID(ctx context.Context, id string) (*domain.Moderator, error) {
	const query = `
        SELECT id, display_name, contact, role, active_flag, daily_quota, partition, created_at, updated_at
        FROM moderators WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *moderatorRepository) GetByContact(ctx context.Context, contact string) (*domain.Moderator, error) {
	const query = `
        SELECT id, display_name, contact, role, active_flag, daily_quota, partition, created_at, updated_at
        FROM moderators WHERE contact=$1`
	return r.fetchSingle(ctx, query, contact)
}

func (r *moderatorRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Moderator, error) {
	var moderator domain.Moderator
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&moderator.ID,
		&moderator.DisplayName,
		&moderator.Contact,
		&moderator.Role,
		&moderator.Active,
		&moderator.DailyQuota,
		&moderator.Partition,
		&moderator.CreatedAt,
		&moderator.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &moderator, nil
}

func (r *moderatorRepository) List(ctx context.Context, filter ModeratorFilter) ([]domain.Moderator, error) {
	query := `
        SELECT id, display_name, contact, role, active_flag, daily_quota, partition, created_at, updated_at
        FROM moderators`
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Partition != nil {
		args = append(args, *filter.Partition)
		clauses = append(clauses, fmt.Sprintf("partition=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active_flag=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Moderator
	for rows.Next() {
		var moderator domain.Moderator
		if err := rows.Scan(
			&moderator.ID,
			&moderator.DisplayName,
			&moderator.Contact,
			&moderator.Role,
			&moderator.Active,
			&moderator.DailyQuota,
			&moderator.Partition,
			&moderator.CreatedAt,
			&moderator.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, moderator)
	}
	return result, rows.Err()
}
