package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/callpool-service/internal/config"
	"github.com/spec-kit/callpool-service/internal/domain"
	"github.com/spec-kit/callpool-service/internal/events"
	"github.com/spec-kit/callpool-service/internal/repository"
	apperrors "github.com/spec-kit/callpool-service/pkg/util"
)

// AllocationService assigns unclaimed items to moderators. It holds no state
// between calls; all coordination happens through the store's conditional
// updates, so concurrent callers can never be granted the same item.
type AllocationService struct {
	items      repository.WorkItemRepository
	moderators repository.ModeratorRepository
	dispatcher events.Dispatcher
	loc        *time.Location

	// Now is injectable for deterministic day-boundary tests.
	Now func() time.Time
}

// AllocationDependencies bundles repositories.
type AllocationDependencies struct {
	ItemRepo      repository.WorkItemRepository
	ModeratorRepo repository.ModeratorRepository
	Dispatcher    events.Dispatcher
}

// NewAllocationService creates the service.
func NewAllocationService(cfg config.EngineConfig, deps AllocationDependencies) *AllocationService {
	return &AllocationService{
		items:      deps.ItemRepo,
		moderators: deps.ModeratorRepo,
		dispatcher: deps.Dispatcher,
		loc:        cfg.Location(),
		Now:        time.Now,
	}
}

// ClaimUpTo claims up to count unclaimed items for the moderator, bounded by
// the remaining daily quota. Quota exhaustion and empty pools are no-ops
// returning an empty slice, so pollers can treat them as "nothing to do".
// Elevated and superuser moderators never receive auto-assigned items and
// also get an empty result.
func (s *AllocationService) ClaimUpTo(ctx context.Context, moderatorID string, count int, campaign *string) ([]domain.WorkItem, error) {
	moderator, err := s.moderators.GetByID(ctx, moderatorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("moderator", map[string]any{"moderator_id": moderatorID})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if !moderator.Active {
		return nil, apperrors.NewConflict("moderator inactive", map[string]any{"moderator_id": moderatorID})
	}
	if !moderator.AutoAssignable() {
		return []domain.WorkItem{}, nil
	}

	dayStart, dayEnd := s.today()
	claimedToday, err := s.items.CountClaimedInWindow(ctx, moderator.ID, dayStart, dayEnd)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	remaining := moderator.DailyQuota - claimedToday
	if remaining <= 0 || count <= 0 {
		return []domain.WorkItem{}, nil
	}
	if count < remaining {
		remaining = count
	}

	claimed, err := s.items.ClaimBatch(ctx, moderator.ID, campaign, remaining, s.Now())
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	for i := range claimed {
		s.publishClaimed(ctx, moderator.ID, &claimed[i], false)
	}
	return claimed, nil
}

// DistributionResult records the items actually granted per moderator. When
// the pool runs out partway through, later moderators in the caller-supplied
// order receive fewer items; nothing already claimed is rolled back.
type DistributionResult struct {
	Assignments map[string][]domain.WorkItem
}

// Counts reports how many items each moderator received.
func (r DistributionResult) Counts() map[string]int {
	counts := make(map[string]int, len(r.Assignments))
	for id, items := range r.Assignments {
		counts[id] = len(items)
	}
	return counts
}

// Distribute claims up to perWorker items for each moderator in the given
// order, drawing without replacement from the shared pool. This is the
// administrative bulk mode: personal daily quotas do not apply. Inactive
// moderators are skipped with a recorded zero.
func (s *AllocationService) Distribute(ctx context.Context, actorID string, moderatorIDs []string, perWorker int, campaign *string) (DistributionResult, error) {
	result := DistributionResult{Assignments: make(map[string][]domain.WorkItem, len(moderatorIDs))}
	if perWorker <= 0 {
		return result, apperrors.NewValidationError("per-worker count must be positive", nil)
	}
	if len(moderatorIDs) == 0 {
		return result, apperrors.NewValidationError("at least one moderator required", nil)
	}

	for _, moderatorID := range moderatorIDs {
		moderator, err := s.moderators.GetByID(ctx, moderatorID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return result, apperrors.NewNotFound("moderator", map[string]any{"moderator_id": moderatorID})
			}
			return result, apperrors.NewStoreUnavailable(err)
		}
		if !moderator.Active {
			result.Assignments[moderator.ID] = []domain.WorkItem{}
			continue
		}

		claimed, err := s.items.ClaimBatch(ctx, moderator.ID, campaign, perWorker, s.Now())
		if err != nil {
			return result, apperrors.NewStoreUnavailable(err)
		}
		result.Assignments[moderator.ID] = claimed
		for i := range claimed {
			s.publishClaimed(ctx, actorID, &claimed[i], true)
		}
	}
	return result, nil
}

// ClaimedToday returns the moderator's claim count for the current calendar
// day, read fresh from the store.
func (s *AllocationService) ClaimedToday(ctx context.Context, moderatorID string) (int, error) {
	dayStart, dayEnd := s.today()
	count, err := s.items.CountClaimedInWindow(ctx, moderatorID, dayStart, dayEnd)
	if err != nil {
		return 0, apperrors.NewStoreUnavailable(err)
	}
	return count, nil
}

// today returns the half-open window of the current calendar day in the
// configured engine timezone.
func (s *AllocationService) today() (time.Time, time.Time) {
	now := s.Now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}

func (s *AllocationService) publishClaimed(ctx context.Context, actorID string, item *domain.WorkItem, bulk bool) {
	if s.dispatcher == nil {
		return
	}
	owner := ""
	if item.OwnerID != nil {
		owner = *item.OwnerID
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventItemClaimed,
		ItemID:    item.ID,
		Actor:     events.Actor{Type: domain.SubjectTypeModerator, ModeratorID: &actorID},
		Timestamp: s.Now(),
		Payload: events.ItemClaimedPayload{
			OwnerID:  owner,
			Campaign: item.Campaign,
			Bulk:     bulk,
		},
	}
	_ = s.dispatcher.Publish(ctx, event)
}
