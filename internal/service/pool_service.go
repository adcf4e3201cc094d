package service

import (
	"context"
	"strings"

	"github.com/spec-kit/callpool-service/internal/domain"
	"github.com/spec-kit/callpool-service/internal/repository"
	apperrors "github.com/spec-kit/callpool-service/pkg/util"
)

// PoolService feeds and inspects the shared pool of unclaimed items.
type PoolService struct {
	items repository.WorkItemRepository
}

// NewPoolService creates the service.
func NewPoolService(itemRepo repository.WorkItemRepository) *PoolService {
	return &PoolService{items: itemRepo}
}

// ImportKeys inserts phone numbers into a campaign as unclaimed items.
// Keys already present in the campaign are skipped; the returned count is
// the number actually inserted.
func (s *PoolService) ImportKeys(ctx context.Context, campaign string, keys []string) (int64, error) {
	campaign = strings.TrimSpace(campaign)
	if campaign == "" {
		return 0, apperrors.NewValidationError("campaign required", nil)
	}

	cleaned := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, key)
	}
	if len(cleaned) == 0 {
		return 0, apperrors.NewValidationError("at least one key required", nil)
	}

	inserted, err := s.items.ImportKeys(ctx, campaign, cleaned)
	if err != nil {
		return 0, apperrors.NewStoreUnavailable(err)
	}
	return inserted, nil
}

// ListItems returns pool items matching the filter.
func (s *PoolService) ListItems(ctx context.Context, filter repository.ItemFilter) ([]domain.WorkItem, error) {
	items, err := s.items.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return items, nil
}
