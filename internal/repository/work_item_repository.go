package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/callpool-service/internal/domain"
)

// ItemFilter captures listing parameters.
type ItemFilter struct {
	Campaign *string
	OwnerID  *string
	Statuses []domain.WorkItemStatus
	Limit    int
	Offset   int
}

// SummaryFilter scopes aggregation to a half-open window [From, To) and
// optional dimensions.
type SummaryFilter struct {
	From     time.Time
	To       time.Time
	Campaign *string
	OwnerID  *string
	Outcome  *domain.Outcome
}

// SummaryCounts are the raw additive tallies behind a report summary. Each
// count applies the window to its own timestamp field.
type SummaryCounts struct {
	Total       int64
	Claimed     int64
	Resolved    int64
	Capable     int64
	NotCapable  int64
	Conversions int64
}

// WorkItemRepository encapsulates work item persistence. Claim and lifecycle
// mutations are single conditional updates: they succeed only if the row is
// still in the required state at commit time. Conditional methods return
// pgx.ErrNoRows when no row satisfied the condition.
type WorkItemRepository interface {
	Create(ctx context.Context, item *domain.WorkItem) error
	ImportKeys(ctx context.Context, campaign string, keys []string) (int64, error)
	GetByID(ctx context.Context, id string) (*domain.WorkItem, error)
	ListWithFilter(ctx context.Context, filter ItemFilter) ([]domain.WorkItem, error)
	ClaimBatch(ctx context.Context, ownerID string, campaign *string, limit int, at time.Time) ([]domain.WorkItem, error)
	CountClaimedInWindow(ctx context.Context, ownerID string, from, to time.Time) (int, error)
	Resolve(ctx context.Context, id string, outcome domain.Outcome, at time.Time) (*domain.WorkItem, error)
	SetConversion(ctx context.Context, id, note string, at time.Time) (*domain.WorkItem, error)
	ClearConversion(ctx context.Context, id string) (*domain.WorkItem, error)
	Reset(ctx context.Context, id string) (*domain.WorkItem, error)
	Summarize(ctx context.Context, filter SummaryFilter) (SummaryCounts, error)
}

type workItemRepository struct {
	pool *pgxpool.Pool
}

// NewWorkItemRepository instantiates the repository.
func NewWorkItemRepository(pool *pgxpool.Pool) WorkItemRepository {
	return &workItemRepository{pool: pool}
}

const itemColumns = `id, key, campaign, status, outcome, converted, converted_at, conversion_note,
               owner_id, created_at, claimed_at, resolved_at`

func (r *workItemRepository) Create(ctx context.Context, item *domain.WorkItem) error {
	const query = `
        INSERT INTO work_items (key, campaign, status)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		item.Key,
		item.Campaign,
		domain.WorkItemStatusUnclaimed,
	).Scan(&item.ID, &item.CreatedAt)
}

func (r *workItemRepository) ImportKeys(ctx context.Context, campaign string, keys []string) (int64, error) {
	const query = `
        INSERT INTO work_items (key, campaign, status)
        SELECT k, $1, 'UNCLAIMED' FROM unnest($2::text[]) AS k
        ON CONFLICT (campaign, key) DO NOTHING`
	cmd, err := r.pool.Exec(ctx, query, campaign, keys)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *workItemRepository) GetByID(ctx context.Context, id string) (*domain.WorkItem, error) {
	query := `SELECT ` + itemColumns + ` FROM work_items WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *workItemRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.WorkItem, error) {
	var item domain.WorkItem
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&item.ID,
		&item.Key,
		&item.Campaign,
		&item.Status,
		&item.Outcome,
		&item.Converted,
		&item.ConvertedAt,
		&item.ConversionNote,
		&item.OwnerID,
		&item.CreatedAt,
		&item.ClaimedAt,
		&item.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}

// ClaimBatch atomically claims up to limit unclaimed items for ownerID in a
// single statement. SKIP LOCKED keeps concurrent claimers from granting the
// same row twice without serializing them on a lock queue.
func (r *workItemRepository) ClaimBatch(ctx context.Context, ownerID string, campaign *string, limit int, at time.Time) ([]domain.WorkItem, error) {
	if limit <= 0 {
		return []domain.WorkItem{}, nil
	}

	base := `
        WITH picked AS (
            SELECT id FROM work_items
            WHERE status='UNCLAIMED'%s
            ORDER BY created_at, id
            LIMIT %d
            FOR UPDATE SKIP LOCKED
        )
        UPDATE work_items w
        SET status='CLAIMED', owner_id=$1, claimed_at=$2
        FROM picked
        WHERE w.id = picked.id
        RETURNING w.id, w.key, w.campaign, w.status, w.outcome, w.converted, w.converted_at,
                  w.conversion_note, w.owner_id, w.created_at, w.claimed_at, w.resolved_at`

	args := []any{ownerID, at}
	clause := ""
	if campaign != nil {
		args = append(args, *campaign)
		clause = fmt.Sprintf(" AND campaign=$%d", len(args))
	}
	query := fmt.Sprintf(base, clause, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkItems(rows)
}

func (r *workItemRepository) CountClaimedInWindow(ctx context.Context, ownerID string, from, to time.Time) (int, error) {
	const query = `
        SELECT COUNT(*) FROM work_items
        WHERE owner_id=$1 AND claimed_at >= $2 AND claimed_at < $3`
	var count int
	if err := r.pool.QueryRow(ctx, query, ownerID, from, to).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *workItemRepository) Resolve(ctx context.Context, id string, outcome domain.Outcome, at time.Time) (*domain.WorkItem, error) {
	query := `
        UPDATE work_items SET status='RESOLVED', outcome=$2, resolved_at=$3
        WHERE id=$1 AND status='CLAIMED'
        RETURNING ` + itemColumns
	return r.fetchSingle(ctx, query, id, outcome, at)
}

func (r *workItemRepository) SetConversion(ctx context.Context, id, note string, at time.Time) (*domain.WorkItem, error) {
	// COALESCE keeps the original conversion moment when the note is edited.
	query := `
        UPDATE work_items
        SET converted=TRUE, converted_at=COALESCE(converted_at,$3), conversion_note=$2
        WHERE id=$1 AND status='RESOLVED' AND outcome='CAPABLE'
        RETURNING ` + itemColumns
	return r.fetchSingle(ctx, query, id, note, at)
}

func (r *workItemRepository) ClearConversion(ctx context.Context, id string) (*domain.WorkItem, error) {
	query := `
        UPDATE work_items
        SET converted=FALSE, converted_at=NULL, conversion_note=''
        WHERE id=$1 AND status='RESOLVED' AND outcome='CAPABLE'
        RETURNING ` + itemColumns
	return r.fetchSingle(ctx, query, id)
}

func (r *workItemRepository) Reset(ctx context.Context, id string) (*domain.WorkItem, error) {
	// Unconditional on status, so the backward transition is idempotent.
	query := `
        UPDATE work_items
        SET status='UNCLAIMED', owner_id=NULL, outcome=NULL, converted=FALSE,
            converted_at=NULL, conversion_note='', claimed_at=NULL, resolved_at=NULL
        WHERE id=$1
        RETURNING ` + itemColumns
	return r.fetchSingle(ctx, query, id)
}

func (r *workItemRepository) ListWithFilter(ctx context.Context, filter ItemFilter) ([]domain.WorkItem, error) {
	base := `SELECT ` + itemColumns + ` FROM work_items`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Campaign != nil {
		args = append(args, *filter.Campaign)
		clauses = append(clauses, fmt.Sprintf("campaign=$%d", len(args)))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at, id LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkItems(rows)
}

func (r *workItemRepository) Summarize(ctx context.Context, filter SummaryFilter) (SummaryCounts, error) {
	base := `
        SELECT
            COUNT(*) FILTER (WHERE created_at >= $1 AND created_at < $2),
            COUNT(*) FILTER (WHERE claimed_at >= $1 AND claimed_at < $2),
            COUNT(*) FILTER (WHERE resolved_at >= $1 AND resolved_at < $2),
            COUNT(*) FILTER (WHERE resolved_at >= $1 AND resolved_at < $2 AND outcome='CAPABLE'),
            COUNT(*) FILTER (WHERE resolved_at >= $1 AND resolved_at < $2 AND outcome='NOT_CAPABLE'),
            COUNT(*) FILTER (WHERE converted AND converted_at >= $1 AND converted_at < $2)
        FROM work_items`
	clauses := []string{}
	args := []any{filter.From, filter.To}

	if filter.Campaign != nil {
		args = append(args, *filter.Campaign)
		clauses = append(clauses, fmt.Sprintf("campaign=$%d", len(args)))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if filter.Outcome != nil {
		args = append(args, *filter.Outcome)
		clauses = append(clauses, fmt.Sprintf("outcome=$%d", len(args)))
	}

	query := base
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	var counts SummaryCounts
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&counts.Total,
		&counts.Claimed,
		&counts.Resolved,
		&counts.Capable,
		&counts.NotCapable,
		&counts.Conversions,
	); err != nil {
		return SummaryCounts{}, err
	}
	return counts, nil
}

func scanWorkItems(rows pgx.Rows) ([]domain.WorkItem, error) {
	var result []domain.WorkItem
	for rows.Next() {
		var item domain.WorkItem
		if err := rows.Scan(
			&item.ID,
			&item.Key,
			&item.Campaign,
			&item.Status,
			&item.Outcome,
			&item.Converted,
			&item.ConvertedAt,
			&item.ConversionNote,
			&item.OwnerID,
			&item.CreatedAt,
			&item.ClaimedAt,
			&item.ResolvedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
