package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/callpool-service/internal/config"
	"github.com/spec-kit/callpool-service/internal/domain"
	"github.com/spec-kit/callpool-service/internal/events"
	"github.com/spec-kit/callpool-service/internal/repository"
	apperrors "github.com/spec-kit/callpool-service/pkg/util"
)

// ModeratorService manages moderator records and their item views.
type ModeratorService struct {
	moderators repository.ModeratorRepository
	items      repository.WorkItemRepository
	dispatcher events.Dispatcher
	cfg        config.EngineConfig
}

// ModeratorDependencies bundles repositories.
type ModeratorDependencies struct {
	ModeratorRepo repository.ModeratorRepository
	ItemRepo      repository.WorkItemRepository
	Dispatcher    events.Dispatcher
}

// NewModeratorService creates the service.
func NewModeratorService(cfg config.EngineConfig, deps ModeratorDependencies) *ModeratorService {
	return &ModeratorService{
		moderators: deps.ModeratorRepo,
		items:      deps.ItemRepo,
		dispatcher: deps.Dispatcher,
		cfg:        cfg,
	}
}

// EnsureModerator returns the moderator for the given contact, creating a
// record on first authenticated contact with the standard role and the
// default daily quota.
func (s *ModeratorService) EnsureModerator(ctx context.Context, contact, displayName string) (*domain.Moderator, error) {
	contact = strings.TrimSpace(strings.ToLower(contact))
	if contact == "" {
		return nil, apperrors.NewValidationError("contact required", nil)
	}

	moderator, err := s.moderators.GetByContact(ctx, contact)
	if err == nil {
		return moderator, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	if strings.TrimSpace(displayName) == "" {
		displayName = contact
	}
	created := &domain.Moderator{
		DisplayName: strings.TrimSpace(displayName),
		Contact:     contact,
		Role:        domain.RoleStandard,
		Active:      true,
		DailyQuota:  s.cfg.DefaultDailyQuota,
	}
	if err := s.moderators.Create(ctx, created); err != nil {
		// Two first contacts can race; the loser reads the winner's row.
		if repository.IsDuplicate(err) {
			return s.getByContact(ctx, contact)
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}

	s.publishCreated(ctx, created)
	return created, nil
}

// GetModerator fetches a moderator by id.
func (s *ModeratorService) GetModerator(ctx context.Context, id string) (*domain.Moderator, error) {
	moderator, err := s.moderators.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("moderator", map[string]any{"moderator_id": id})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return moderator, nil
}

// ListModerators returns moderators matching the filter.
func (s *ModeratorService) ListModerators(ctx context.Context, filter repository.ModeratorFilter) ([]domain.Moderator, error) {
	moderators, err := s.moderators.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return moderators, nil
}

// SetDailyQuota updates the moderator's self-service quota.
func (s *ModeratorService) SetDailyQuota(ctx context.Context, id string, quota int) (*domain.Moderator, error) {
	if quota < 0 {
		return nil, apperrors.NewValidationError("quota must be non-negative", map[string]any{"quota": quota})
	}
	return s.updateModerator(ctx, id, func(m *domain.Moderator) {
		m.DailyQuota = quota
	})
}

// SetRole updates the moderator's capability level.
func (s *ModeratorService) SetRole(ctx context.Context, id string, role domain.ModeratorRole) (*domain.Moderator, error) {
	switch role {
	case domain.RoleStandard, domain.RoleElevated, domain.RoleSuperuser:
	default:
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	return s.updateModerator(ctx, id, func(m *domain.Moderator) {
		m.Role = role
	})
}

// SetActive flips the moderator's active flag. Deactivation blocks new
// claims but keeps already-claimed items attributed for reporting.
func (s *ModeratorService) SetActive(ctx context.Context, id string, active bool) (*domain.Moderator, error) {
	return s.updateModerator(ctx, id, func(m *domain.Moderator) {
		m.Active = active
	})
}

// SetPartition updates the dashboard partition tag.
func (s *ModeratorService) SetPartition(ctx context.Context, id, partition string) (*domain.Moderator, error) {
	return s.updateModerator(ctx, id, func(m *domain.Moderator) {
		m.Partition = strings.TrimSpace(partition)
	})
}

// ListItems returns the moderator's items, optionally narrowed by status.
func (s *ModeratorService) ListItems(ctx context.Context, moderatorID string, statuses []domain.WorkItemStatus, limit, offset int) ([]domain.WorkItem, error) {
	if _, err := s.GetModerator(ctx, moderatorID); err != nil {
		return nil, err
	}
	items, err := s.items.ListWithFilter(ctx, repository.ItemFilter{
		OwnerID:  &moderatorID,
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return items, nil
}

func (s *ModeratorService) updateModerator(ctx context.Context, id string, mutate func(*domain.Moderator)) (*domain.Moderator, error) {
	moderator, err := s.GetModerator(ctx, id)
	if err != nil {
		return nil, err
	}
	mutate(moderator)
	if err := s.moderators.Update(ctx, moderator); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("moderator", map[string]any{"moderator_id": id})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return moderator, nil
}

func (s *ModeratorService) getByContact(ctx context.Context, contact string) (*domain.Moderator, error) {
	moderator, err := s.moderators.GetByContact(ctx, contact)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return moderator, nil
}

func (s *ModeratorService) publishCreated(ctx context.Context, moderator *domain.Moderator) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventModeratorCreated,
		Actor:     events.Actor{Type: domain.SubjectTypeModerator, ModeratorID: &moderator.ID},
		Timestamp: time.Now(),
		Payload: events.ModeratorCreatedPayload{
			Contact:    moderator.Contact,
			Role:       moderator.Role,
			DailyQuota: moderator.DailyQuota,
		},
	}
	_ = s.dispatcher.Publish(ctx, event)
}
