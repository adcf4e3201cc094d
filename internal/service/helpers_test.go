package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/callpool-service/internal/config"
	"github.com/spec-kit/callpool-service/internal/domain"
	"github.com/spec-kit/callpool-service/internal/events"
	"github.com/spec-kit/callpool-service/internal/repository"
	apperrors "github.com/spec-kit/callpool-service/pkg/util"
)

// recordingDispatcher collects published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	matched := make([]events.Event, 0)
	for _, event := range d.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// engineFixture wires the services against the in-process store with a
// controllable clock. Tests move time by assigning fx.now.
type engineFixture struct {
	items      repository.WorkItemRepository
	moderators repository.ModeratorRepository
	dispatcher *recordingDispatcher

	allocator  *AllocationService
	lifecycle  *LifecycleService
	reports    *ReportService
	modService *ModeratorService
	pool       *PoolService

	now time.Time
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	fx := &engineFixture{
		items:      repository.NewMemoryWorkItemRepository(),
		moderators: repository.NewMemoryModeratorRepository(),
		dispatcher: &recordingDispatcher{},
		now:        time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC),
	}
	cfg := config.EngineConfig{Timezone: "UTC", DefaultDailyQuota: 25}

	fx.allocator = NewAllocationService(cfg, AllocationDependencies{
		ItemRepo:      fx.items,
		ModeratorRepo: fx.moderators,
		Dispatcher:    fx.dispatcher,
	})
	fx.allocator.Now = func() time.Time { return fx.now }

	fx.lifecycle = NewLifecycleService(LifecycleDependencies{
		ItemRepo:   fx.items,
		Dispatcher: fx.dispatcher,
	})
	fx.lifecycle.Now = func() time.Time { return fx.now }

	fx.reports = NewReportService(cfg, fx.items)
	fx.modService = NewModeratorService(cfg, ModeratorDependencies{
		ModeratorRepo: fx.moderators,
		ItemRepo:      fx.items,
		Dispatcher:    fx.dispatcher,
	})
	fx.pool = NewPoolService(fx.items)
	return fx
}

func (fx *engineFixture) addModerator(t *testing.T, name string, role domain.ModeratorRole, active bool, quota int) *domain.Moderator {
	t.Helper()
	moderator := &domain.Moderator{
		DisplayName: name,
		Contact:     name + "@example.com",
		Role:        role,
		Active:      active,
		DailyQuota:  quota,
	}
	if err := fx.moderators.Create(context.Background(), moderator); err != nil {
		t.Fatalf("create moderator %s: %v", name, err)
	}
	return moderator
}

func (fx *engineFixture) seedItems(t *testing.T, campaign string, count int) {
	t.Helper()
	keys := make([]string, 0, count)
	for i := 0; i < count; i++ {
		keys = append(keys, fmt.Sprintf("+1555%s%04d", campaign, i))
	}
	inserted, err := fx.items.ImportKeys(context.Background(), campaign, keys)
	if err != nil {
		t.Fatalf("seed items: %v", err)
	}
	if inserted != int64(count) {
		t.Fatalf("seeded %d items, want %d", inserted, count)
	}
}

func (fx *engineFixture) unclaimedCount(t *testing.T, campaign string) int {
	t.Helper()
	items, err := fx.items.ListWithFilter(context.Background(), repository.ItemFilter{
		Campaign: &campaign,
		Statuses: []domain.WorkItemStatus{domain.WorkItemStatusUnclaimed},
		Limit:    1000,
	})
	if err != nil {
		t.Fatalf("list unclaimed: %v", err)
	}
	return len(items)
}

func itemFilterForCampaign(campaign string) repository.ItemFilter {
	return repository.ItemFilter{Campaign: &campaign, Limit: 100}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	if domainErr.Code != code {
		t.Fatalf("error code = %s, want %s (message %q)", domainErr.Code, code, domainErr.Message)
	}
}
