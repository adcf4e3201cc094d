package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/callpool-service/internal/domain"
)

// memoryWorkItemRepository is an in-process WorkItemRepository with the same
// conditional-update contract as the postgres implementation. Every mutation
// checks the row's state under the lock, so claim and lifecycle races behave
// exactly like their single-statement SQL counterparts. Used by tests and
// DSN-less development runs.
type memoryWorkItemRepository struct {
	mu    sync.Mutex
	items map[string]*domain.WorkItem
	seq   map[string]int
	next  int
}

// NewMemoryWorkItemRepository creates an empty in-process item store.
func NewMemoryWorkItemRepository() WorkItemRepository {
	return &memoryWorkItemRepository{
		items: make(map[string]*domain.WorkItem),
		seq:   make(map[string]int),
	}
}

func (r *memoryWorkItemRepository) Create(ctx context.Context, item *domain.WorkItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Campaign == item.Campaign && existing.Key == item.Key {
			return ErrDuplicateKey
		}
	}
	item.ID = uuid.NewString()
	item.Status = domain.WorkItemStatusUnclaimed
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	stored := *item
	r.items[stored.ID] = &stored
	r.seq[stored.ID] = r.next
	r.next++
	return nil
}

func (r *memoryWorkItemRepository) ImportKeys(ctx context.Context, campaign string, keys []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := make(map[string]struct{})
	for _, item := range r.items {
		if item.Campaign == campaign {
			existing[item.Key] = struct{}{}
		}
	}
	var inserted int64
	for _, key := range keys {
		if _, dup := existing[key]; dup {
			continue
		}
		existing[key] = struct{}{}
		item := &domain.WorkItem{
			ID:        uuid.NewString(),
			Key:       key,
			Campaign:  campaign,
			Status:    domain.WorkItemStatusUnclaimed,
			CreatedAt: time.Now(),
		}
		r.items[item.ID] = item
		r.seq[item.ID] = r.next
		r.next++
		inserted++
	}
	return inserted, nil
}

func (r *memoryWorkItemRepository) GetByID(ctx context.Context, id string) (*domain.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *item
	return &copied, nil
}

func (r *memoryWorkItemRepository) ClaimBatch(ctx context.Context, ownerID string, campaign *string, limit int, at time.Time) ([]domain.WorkItem, error) {
	if limit <= 0 {
		return []domain.WorkItem{}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	candidates := make([]*domain.WorkItem, 0)
	for _, item := range r.items {
		if item.Status != domain.WorkItemStatusUnclaimed {
			continue
		}
		if campaign != nil && item.Campaign != *campaign {
			continue
		}
		candidates = append(candidates, item)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return r.seq[candidates[i].ID] < r.seq[candidates[j].ID]
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	claimed := make([]domain.WorkItem, 0, len(candidates))
	for _, item := range candidates {
		owner := ownerID
		claimedAt := at
		item.Status = domain.WorkItemStatusClaimed
		item.OwnerID = &owner
		item.ClaimedAt = &claimedAt
		claimed = append(claimed, *item)
	}
	return claimed, nil
}

func (r *memoryWorkItemRepository) CountClaimedInWindow(ctx context.Context, ownerID string, from, to time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, item := range r.items {
		if item.OwnerID == nil || *item.OwnerID != ownerID || item.ClaimedAt == nil {
			continue
		}
		if inWindow(*item.ClaimedAt, from, to) {
			count++
		}
	}
	return count, nil
}

func (r *memoryWorkItemRepository) Resolve(ctx context.Context, id string, outcome domain.Outcome, at time.Time) (*domain.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.Status != domain.WorkItemStatusClaimed {
		return nil, pgx.ErrNoRows
	}
	resolvedAt := at
	result := outcome
	item.Status = domain.WorkItemStatusResolved
	item.Outcome = &result
	item.ResolvedAt = &resolvedAt
	copied := *item
	return &copied, nil
}

func (r *memoryWorkItemRepository) SetConversion(ctx context.Context, id, note string, at time.Time) (*domain.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.Status != domain.WorkItemStatusResolved || item.Outcome == nil || *item.Outcome != domain.OutcomeCapable {
		return nil, pgx.ErrNoRows
	}
	if item.ConvertedAt == nil {
		convertedAt := at
		item.ConvertedAt = &convertedAt
	}
	item.Converted = true
	item.ConversionNote = note
	copied := *item
	return &copied, nil
}

func (r *memoryWorkItemRepository) ClearConversion(ctx context.Context, id string) (*domain.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.Status != domain.WorkItemStatusResolved || item.Outcome == nil || *item.Outcome != domain.OutcomeCapable {
		return nil, pgx.ErrNoRows
	}
	item.Converted = false
	item.ConvertedAt = nil
	item.ConversionNote = ""
	copied := *item
	return &copied, nil
}

func (r *memoryWorkItemRepository) Reset(ctx context.Context, id string) (*domain.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	item.Status = domain.WorkItemStatusUnclaimed
	item.OwnerID = nil
	item.Outcome = nil
	item.Converted = false
	item.ConvertedAt = nil
	item.ConversionNote = ""
	item.ClaimedAt = nil
	item.ResolvedAt = nil
	copied := *item
	return &copied, nil
}

func (r *memoryWorkItemRepository) ListWithFilter(ctx context.Context, filter ItemFilter) ([]domain.WorkItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]*domain.WorkItem, 0)
	for _, item := range r.items {
		if filter.Campaign != nil && item.Campaign != *filter.Campaign {
			continue
		}
		if filter.OwnerID != nil && (item.OwnerID == nil || *item.OwnerID != *filter.OwnerID) {
			continue
		}
		if len(filter.Statuses) > 0 && !statusIn(item.Status, filter.Statuses) {
			continue
		}
		matched = append(matched, item)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return r.seq[matched[i].ID] < r.seq[matched[j].ID]
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []domain.WorkItem{}, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}

	result := make([]domain.WorkItem, 0, len(matched))
	for _, item := range matched {
		result = append(result, *item)
	}
	return result, nil
}

func (r *memoryWorkItemRepository) Summarize(ctx context.Context, filter SummaryFilter) (SummaryCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var counts SummaryCounts
	for _, item := range r.items {
		if filter.Campaign != nil && item.Campaign != *filter.Campaign {
			continue
		}
		if filter.OwnerID != nil && (item.OwnerID == nil || *item.OwnerID != *filter.OwnerID) {
			continue
		}
		if filter.Outcome != nil && (item.Outcome == nil || *item.Outcome != *filter.Outcome) {
			continue
		}
		if inWindow(item.CreatedAt, filter.From, filter.To) {
			counts.Total++
		}
		if item.ClaimedAt != nil && inWindow(*item.ClaimedAt, filter.From, filter.To) {
			counts.Claimed++
		}
		if item.ResolvedAt != nil && inWindow(*item.ResolvedAt, filter.From, filter.To) {
			counts.Resolved++
			if item.Outcome != nil && *item.Outcome == domain.OutcomeCapable {
				counts.Capable++
			}
			if item.Outcome != nil && *item.Outcome == domain.OutcomeNotCapable {
				counts.NotCapable++
			}
		}
		if item.Converted && item.ConvertedAt != nil && inWindow(*item.ConvertedAt, filter.From, filter.To) {
			counts.Conversions++
		}
	}
	return counts, nil
}

// inWindow applies the half-open convention [from, to).
func inWindow(ts, from, to time.Time) bool {
	return !ts.Before(from) && ts.Before(to)
}

func statusIn(status domain.WorkItemStatus, set []domain.WorkItemStatus) bool {
	for _, candidate := range set {
		if candidate == status {
			return true
		}
	}
	return false
}

// memoryModeratorRepository is the in-process ModeratorRepository.
type memoryModeratorRepository struct {
	mu         sync.Mutex
	moderators map[string]*domain.Moderator
}

// NewMemoryModeratorRepository creates an empty in-process moderator store.
func NewMemoryModeratorRepository() ModeratorRepository {
	return &memoryModeratorRepository{moderators: make(map[string]*domain.Moderator)}
}

func (r *memoryModeratorRepository) Create(ctx context.Context, moderator *domain.Moderator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.moderators {
		if existing.Contact == moderator.Contact {
			return ErrDuplicateKey
		}
	}
	moderator.ID = uuid.NewString()
	now := time.Now()
	moderator.CreatedAt = now
	moderator.UpdatedAt = now
	stored := *moderator
	r.moderators[stored.ID] = &stored
	return nil
}

func (r *memoryModeratorRepository) Update(ctx context.Context, moderator *domain.Moderator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.moderators[moderator.ID]; !ok {
		return pgx.ErrNoRows
	}
	moderator.UpdatedAt = time.Now()
	stored := *moderator
	r.moderators[stored.ID] = &stored
	return nil
}

func (r *memoryModeratorRepository) GetByID(ctx context.Context, id string) (*domain.Moderator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	moderator, ok := r.moderators[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *moderator
	return &copied, nil
}

func (r *memoryModeratorRepository) GetByContact(ctx context.Context, contact string) (*domain.Moderator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, moderator := range r.moderators {
		if moderator.Contact == contact {
			copied := *moderator
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryModeratorRepository) List(ctx context.Context, filter ModeratorFilter) ([]domain.Moderator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]domain.Moderator, 0)
	for _, moderator := range r.moderators {
		if filter.Role != nil && moderator.Role != *filter.Role {
			continue
		}
		if filter.Partition != nil && moderator.Partition != *filter.Partition {
			continue
		}
		if filter.Active != nil && moderator.Active != *filter.Active {
			continue
		}
		matched = append(matched, *moderator)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched, nil
}
