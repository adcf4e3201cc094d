package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/callpool-service/internal/domain"
	"github.com/spec-kit/callpool-service/internal/events"
	"github.com/spec-kit/callpool-service/internal/repository"
	apperrors "github.com/spec-kit/callpool-service/pkg/util"
)

// LifecycleService enforces legal status transitions for claimed items.
// Each mutation is a single conditional update against the store, so a
// resolve racing a reset on the same item commits in one deterministic
// order instead of losing an update.
type LifecycleService struct {
	items      repository.WorkItemRepository
	dispatcher events.Dispatcher

	Now func() time.Time
}

// LifecycleDependencies bundles repositories.
type LifecycleDependencies struct {
	ItemRepo   repository.WorkItemRepository
	Dispatcher events.Dispatcher
}

// NewLifecycleService creates the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		items:      deps.ItemRepo,
		dispatcher: deps.Dispatcher,
		Now:        time.Now,
	}
}

// Resolve advances a CLAIMED item to RESOLVED with the given outcome.
// Double-resolves and resolves of unclaimed items fail with
// INVALID_TRANSITION and leave the item unchanged.
func (s *LifecycleService) Resolve(ctx context.Context, actorID, itemID string, outcome domain.Outcome) (*domain.WorkItem, error) {
	if outcome != domain.OutcomeCapable && outcome != domain.OutcomeNotCapable {
		return nil, apperrors.NewValidationError("unknown outcome", map[string]any{"outcome": outcome})
	}

	item, err := s.items.Resolve(ctx, itemID, outcome, s.Now())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.classifyConditionFailure(ctx, itemID, domain.WorkItemStatusResolved)
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}

	s.publish(ctx, events.Event{
		Type:   events.EventItemResolved,
		ItemID: item.ID,
		Actor:  moderatorActor(actorID),
		Payload: events.ItemResolvedPayload{
			OwnerID: item.OwnerID,
			Outcome: outcome,
		},
	})
	return item, nil
}

// RecordConversion marks a resolved-capable item as converted. Repeat calls
// update the note without duplicating the conversion; the original
// conversion timestamp is preserved.
func (s *LifecycleService) RecordConversion(ctx context.Context, actorID, itemID, note string) (*domain.WorkItem, error) {
	item, err := s.items.SetConversion(ctx, itemID, strings.TrimSpace(note), s.Now())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.classifyConversionFailure(ctx, itemID)
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}

	s.publish(ctx, events.Event{
		Type:   events.EventConversionRecorded,
		ItemID: item.ID,
		Actor:  moderatorActor(actorID),
		Payload: events.ConversionPayload{
			OwnerID: item.OwnerID,
			Note:    item.ConversionNote,
		},
	})
	return item, nil
}

// ClearConversion reverses a recorded conversion without altering the
// item's outcome.
func (s *LifecycleService) ClearConversion(ctx context.Context, actorID, itemID string) (*domain.WorkItem, error) {
	item, err := s.items.ClearConversion(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.classifyConversionFailure(ctx, itemID)
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}

	s.publish(ctx, events.Event{
		Type:    events.EventConversionCleared,
		ItemID:  item.ID,
		Actor:   moderatorActor(actorID),
		Payload: events.ConversionPayload{OwnerID: item.OwnerID},
	})
	return item, nil
}

// Reset returns an item to UNCLAIMED from any state, clearing owner,
// outcome, conversion and claim/resolve timestamps. Resetting an already
// unclaimed item is a no-op, not an error, and publishes no event.
func (s *LifecycleService) Reset(ctx context.Context, actorID, itemID string) (*domain.WorkItem, error) {
	previous, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("work item", map[string]any{"item_id": itemID})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}

	item, err := s.items.Reset(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("work item", map[string]any{"item_id": itemID})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}

	if previous.Status != domain.WorkItemStatusUnclaimed {
		s.publish(ctx, events.Event{
			Type:   events.EventItemReset,
			ItemID: item.ID,
			Actor:  moderatorActor(actorID),
			Payload: events.ItemResetPayload{
				PreviousStatus: previous.Status,
				PreviousOwner:  previous.OwnerID,
			},
		})
	}
	return item, nil
}

// GetItem fetches a single item.
func (s *LifecycleService) GetItem(ctx context.Context, itemID string) (*domain.WorkItem, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("work item", map[string]any{"item_id": itemID})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return item, nil
}

// classifyConditionFailure distinguishes a missing item from one in the
// wrong state after a conditional update matched no row. When the item's
// current state would in fact allow the transition, the update lost a race
// with a concurrent writer.
func (s *LifecycleService) classifyConditionFailure(ctx context.Context, itemID string, target domain.WorkItemStatus) error {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("work item", map[string]any{"item_id": itemID})
		}
		return apperrors.NewStoreUnavailable(err)
	}
	details := map[string]any{
		"item_id":        itemID,
		"current_status": item.Status,
		"target_status":  target,
	}
	if domain.IsValidTransition(item.Status, target) {
		return apperrors.NewConflict("item state changed concurrently", details)
	}
	return apperrors.NewInvalidTransition("transition not allowed from current state", details)
}

func (s *LifecycleService) classifyConversionFailure(ctx context.Context, itemID string) error {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("work item", map[string]any{"item_id": itemID})
		}
		return apperrors.NewStoreUnavailable(err)
	}
	details := map[string]any{
		"item_id":        itemID,
		"current_status": item.Status,
	}
	if item.Outcome != nil {
		details["outcome"] = *item.Outcome
	}
	return apperrors.NewInvalidTransition("conversion requires a resolved capable item", details)
}

func (s *LifecycleService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func moderatorActor(moderatorID string) events.Actor {
	if moderatorID == "" {
		return events.Actor{Type: domain.SubjectTypeSystem}
	}
	return events.Actor{
		Type:        domain.SubjectTypeModerator,
		ModeratorID: &moderatorID,
	}
}
