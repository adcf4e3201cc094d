package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/callpool-service/internal/domain"
	"github.com/spec-kit/callpool-service/internal/events"
)

func TestClaimUpToRespectsDailyQuota(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()
	worker := fx.addModerator(t, "worker", domain.RoleStandard, true, 3)
	fx.seedItems(t, "alpha", 10)

	claimed, err := fx.allocator.ClaimUpTo(ctx, worker.ID, 5, nil)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) != 3 {
		t.Fatalf("claimed %d items, want quota-bounded 3", len(claimed))
	}
	for _, item := range claimed {
		if item.Status != domain.WorkItemStatusClaimed {
			t.Fatalf("item %s status = %s, want CLAIMED", item.ID, item.Status)
		}
		if item.OwnerID == nil || *item.OwnerID != worker.ID {
			t.Fatalf("item %s not owned by claimer", item.ID)
		}
	}

	// Quota exhausted: subsequent claims are an empty no-op, not an error.
	again, err := fx.allocator.ClaimUpTo(ctx, worker.ID, 5, nil)
	if err != nil {
		t.Fatalf("claim at exhausted quota: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("claimed %d items past quota, want 0", len(again))
	}
	if got := fx.unclaimedCount(t, "alpha"); got != 7 {
		t.Fatalf("unclaimed remainder = %d, want 7", got)
	}
}

func TestClaimUpToQuotaSpansCalls(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()
	worker := fx.addModerator(t, "worker", domain.RoleStandard, true, 3)
	fx.seedItems(t, "alpha", 10)

	first, err := fx.allocator.ClaimUpTo(ctx, worker.ID, 2, nil)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	second, err := fx.allocator.ClaimUpTo(ctx, worker.ID, 5, nil)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if len(first) != 2 || len(second) != 1 {
		t.Fatalf("claims = %d then %d, want 2 then 1", len(first), len(second))
	}
}

func TestClaimUpToQuotaResetsAtDayBoundary(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()
	worker := fx.addModerator(t, "worker", domain.RoleStandard, true, 2)
	fx.seedItems(t, "alpha", 6)

	if claimed, _ := fx.allocator.ClaimUpTo(ctx, worker.ID, 5, nil); len(claimed) != 2 {
		t.Fatalf("day-one claims = %d, want 2", len(claimed))
	}

	fx.now = fx.now.AddDate(0, 0, 1)

	claimed, err := fx.allocator.ClaimUpTo(ctx, worker.ID, 5, nil)
	if err != nil {
		t.Fatalf("next-day claim: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("next-day claims = %d, want fresh quota of 2", len(claimed))
	}
}

// Two workers racing over a pool of ten: one has already used a claim today.
func TestClaimUpToTwoWorkersShareFinitePool(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()
	w1 := fx.addModerator(t, "w1", domain.RoleStandard, true, 3)
	w2 := fx.addModerator(t, "w2", domain.RoleStandard, true, 5)

	fx.seedItems(t, "warmup", 1)
	if claimed, _ := fx.allocator.ClaimUpTo(ctx, w1.ID, 1, nil); len(claimed) != 1 {
		t.Fatal("warmup claim failed")
	}

	fx.seedItems(t, "alpha", 10)
	campaign := "alpha"

	g1, err := fx.allocator.ClaimUpTo(ctx, w1.ID, 10, &campaign)
	if err != nil {
		t.Fatalf("w1 claim: %v", err)
	}
	g2, err := fx.allocator.ClaimUpTo(ctx, w2.ID, 10, &campaign)
	if err != nil {
		t.Fatalf("w2 claim: %v", err)
	}
	if len(g1) != 2 {
		t.Fatalf("w1 granted %d, want 2 (quota 3 minus 1 used)", len(g1))
	}
	if len(g2) != 5 {
		t.Fatalf("w2 granted %d, want 5", len(g2))
	}
	if got := fx.unclaimedCount(t, "alpha"); got != 3 {
		t.Fatalf("unclaimed remainder = %d, want 3", got)
	}
}

func TestClaimUpToConcurrentClaimersNeverShareItems(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()
	fx.seedItems(t, "alpha", 40)

	const workers = 8
	ids := make([]string, 0, workers)
	for i := 0; i < workers; i++ {
		ids = append(ids, fx.addModerator(t, string(rune('a'+i)), domain.RoleStandard, true, 10).ID)
	}

	results := make([][]domain.WorkItem, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			claimed, err := fx.allocator.ClaimUpTo(ctx, ids[idx], 10, nil)
			if err != nil {
				t.Errorf("worker %d claim: %v", idx, err)
				return
			}
			results[idx] = claimed
		}(i)
	}
	wg.Wait()

	seen := make(map[string]int)
	total := 0
	for idx, claimed := range results {
		total += len(claimed)
		for _, item := range claimed {
			if prev, dup := seen[item.ID]; dup {
				t.Fatalf("item %s granted to both worker %d and worker %d", item.ID, prev, idx)
			}
			seen[item.ID] = idx
		}
	}
	if total != 40 {
		t.Fatalf("total granted = %d, want the entire pool of 40", total)
	}
	if got := fx.unclaimedCount(t, "alpha"); got != 0 {
		t.Fatalf("unclaimed remainder = %d, want 0", got)
	}
}

func TestClaimUpToElevatedRolesGetNothing(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()
	fx.seedItems(t, "alpha", 5)

	for _, role := range []domain.ModeratorRole{domain.RoleElevated, domain.RoleSuperuser} {
		moderator := fx.addModerator(t, string(role), role, true, 10)
		claimed, err := fx.allocator.ClaimUpTo(ctx, moderator.ID, 5, nil)
		if err != nil {
			t.Fatalf("%s claim: %v", role, err)
		}
		if len(claimed) != 0 {
			t.Fatalf("%s granted %d items, want 0", role, len(claimed))
		}
	}
	if got := fx.unclaimedCount(t, "alpha"); got != 5 {
		t.Fatalf("pool shrank to %d, want untouched 5", got)
	}
}

func TestClaimUpToInactiveModerator(t *testing.T) {
	fx := newEngineFixture(t)
	moderator := fx.addModerator(t, "idle", domain.RoleStandard, false, 10)
	fx.seedItems(t, "alpha", 5)

	_, err := fx.allocator.ClaimUpTo(context.Background(), moderator.ID, 5, nil)
	requireCode(t, err, "CONFLICT")
}

func TestClaimUpToUnknownModerator(t *testing.T) {
	fx := newEngineFixture(t)
	_, err := fx.allocator.ClaimUpTo(context.Background(), "missing", 5, nil)
	requireCode(t, err, "NOT_FOUND")
}

func TestClaimUpToEmptyPool(t *testing.T) {
	fx := newEngineFixture(t)
	moderator := fx.addModerator(t, "worker", domain.RoleStandard, true, 10)

	claimed, err := fx.allocator.ClaimUpTo(context.Background(), moderator.ID, 5, nil)
	if err != nil {
		t.Fatalf("claim on empty pool: %v", err)
	}
	if len(claimed) != 0 {
		t.Fatalf("claimed %d from empty pool", len(claimed))
	}
}

func TestClaimUpToFiltersByCampaign(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()
	moderator := fx.addModerator(t, "worker", domain.RoleStandard, true, 10)
	fx.seedItems(t, "alpha", 3)
	fx.seedItems(t, "beta", 3)

	campaign := "beta"
	claimed, err := fx.allocator.ClaimUpTo(ctx, moderator.ID, 10, &campaign)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) != 3 {
		t.Fatalf("claimed %d, want 3", len(claimed))
	}
	for _, item := range claimed {
		if item.Campaign != "beta" {
			t.Fatalf("claimed item from campaign %s, want beta", item.Campaign)
		}
	}
	if got := fx.unclaimedCount(t, "alpha"); got != 3 {
		t.Fatalf("alpha pool = %d, want untouched 3", got)
	}
}

func TestClaimUpToPublishesClaimEvents(t *testing.T) {
	fx := newEngineFixture(t)
	moderator := fx.addModerator(t, "worker", domain.RoleStandard, true, 10)
	fx.seedItems(t, "alpha", 4)

	if _, err := fx.allocator.ClaimUpTo(context.Background(), moderator.ID, 4, nil); err != nil {
		t.Fatalf("claim: %v", err)
	}
	published := fx.dispatcher.byType(events.EventItemClaimed)
	if len(published) != 4 {
		t.Fatalf("published %d claim events, want one per item (4)", len(published))
	}
	for _, event := range published {
		payload, ok := event.Payload.(events.ItemClaimedPayload)
		if !ok {
			t.Fatalf("unexpected payload type %T", event.Payload)
		}
		if payload.Bulk {
			t.Fatal("self-service claim flagged as bulk")
		}
		if payload.OwnerID != moderator.ID {
			t.Fatalf("event owner = %s, want %s", payload.OwnerID, moderator.ID)
		}
	}
}

func TestDistributeDrawsWithoutReplacement(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()
	m1 := fx.addModerator(t, "m1", domain.RoleStandard, true, 10)
	m2 := fx.addModerator(t, "m2", domain.RoleStandard, true, 10)
	fx.seedItems(t, "alpha", 10)

	result, err := fx.allocator.Distribute(ctx, "admin", []string{m1.ID, m2.ID}, 4, nil)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	counts := result.Counts()
	if counts[m1.ID] != 4 || counts[m2.ID] != 4 {
		t.Fatalf("counts = %v, want 4 each", counts)
	}

	seen := make(map[string]struct{})
	for _, items := range result.Assignments {
		for _, item := range items {
			if _, dup := seen[item.ID]; dup {
				t.Fatalf("item %s assigned twice", item.ID)
			}
			seen[item.ID] = struct{}{}
		}
	}
	if got := fx.unclaimedCount(t, "alpha"); got != 2 {
		t.Fatalf("unclaimed remainder = %d, want 2", got)
	}
}

func TestDistributePartialExhaustion(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()
	m1 := fx.addModerator(t, "m1", domain.RoleStandard, true, 10)
	m2 := fx.addModerator(t, "m2", domain.RoleStandard, true, 10)
	fx.seedItems(t, "alpha", 5)

	result, err := fx.allocator.Distribute(ctx, "admin", []string{m1.ID, m2.ID}, 4, nil)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	counts := result.Counts()
	if counts[m1.ID] != 4 || counts[m2.ID] != 1 {
		t.Fatalf("counts = %v, want first-listed 4 then remainder 1", counts)
	}
}

func TestDistributeSkipsInactive(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()
	active := fx.addModerator(t, "active", domain.RoleStandard, true, 10)
	idle := fx.addModerator(t, "idle", domain.RoleStandard, false, 10)
	fx.seedItems(t, "alpha", 6)

	result, err := fx.allocator.Distribute(ctx, "admin", []string{idle.ID, active.ID}, 3, nil)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	counts := result.Counts()
	if counts[idle.ID] != 0 {
		t.Fatalf("inactive moderator granted %d items", counts[idle.ID])
	}
	if counts[active.ID] != 3 {
		t.Fatalf("active moderator granted %d, want 3", counts[active.ID])
	}
}

func TestDistributeIgnoresDailyQuota(t *testing.T) {
	fx := newEngineFixture(t)
	moderator := fx.addModerator(t, "m1", domain.RoleStandard, true, 1)
	fx.seedItems(t, "alpha", 5)

	result, err := fx.allocator.Distribute(context.Background(), "admin", []string{moderator.ID}, 5, nil)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if got := result.Counts()[moderator.ID]; got != 5 {
		t.Fatalf("granted %d, want 5 despite quota 1", got)
	}
}

func TestDistributeValidation(t *testing.T) {
	fx := newEngineFixture(t)
	moderator := fx.addModerator(t, "m1", domain.RoleStandard, true, 10)
	ctx := context.Background()

	_, err := fx.allocator.Distribute(ctx, "admin", []string{moderator.ID}, 0, nil)
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = fx.allocator.Distribute(ctx, "admin", nil, 3, nil)
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestDistributeUnknownModeratorKeepsEarlierGrants(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()
	moderator := fx.addModerator(t, "m1", domain.RoleStandard, true, 10)
	fx.seedItems(t, "alpha", 6)

	result, err := fx.allocator.Distribute(ctx, "admin", []string{moderator.ID, "missing"}, 3, nil)
	requireCode(t, err, "NOT_FOUND")
	if got := result.Counts()[moderator.ID]; got != 3 {
		t.Fatalf("earlier grant = %d, want 3 kept", got)
	}
	if got := fx.unclaimedCount(t, "alpha"); got != 3 {
		t.Fatalf("unclaimed remainder = %d, want 3", got)
	}
}

func TestDistributePublishesBulkEvents(t *testing.T) {
	fx := newEngineFixture(t)
	moderator := fx.addModerator(t, "m1", domain.RoleStandard, true, 10)
	fx.seedItems(t, "alpha", 3)

	if _, err := fx.allocator.Distribute(context.Background(), "admin", []string{moderator.ID}, 3, nil); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	published := fx.dispatcher.byType(events.EventItemClaimed)
	if len(published) != 3 {
		t.Fatalf("published %d events, want 3", len(published))
	}
	for _, event := range published {
		payload := event.Payload.(events.ItemClaimedPayload)
		if !payload.Bulk {
			t.Fatal("distribution event not flagged bulk")
		}
		if payload.OwnerID != moderator.ID {
			t.Fatalf("event owner = %s, want %s", payload.OwnerID, moderator.ID)
		}
	}
}

func TestClaimedTodayCountsCurrentDayOnly(t *testing.T) {
	fx := newEngineFixture(t)
	ctx := context.Background()
	moderator := fx.addModerator(t, "worker", domain.RoleStandard, true, 10)
	fx.seedItems(t, "alpha", 6)

	if _, err := fx.allocator.ClaimUpTo(ctx, moderator.ID, 2, nil); err != nil {
		t.Fatalf("claim: %v", err)
	}
	count, err := fx.allocator.ClaimedToday(ctx, moderator.ID)
	if err != nil {
		t.Fatalf("claimed today: %v", err)
	}
	if count != 2 {
		t.Fatalf("claimed today = %d, want 2", count)
	}

	fx.now = time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC)
	count, err = fx.allocator.ClaimedToday(ctx, moderator.ID)
	if err != nil {
		t.Fatalf("claimed today: %v", err)
	}
	if count != 0 {
		t.Fatalf("claimed today after midnight = %d, want 0", count)
	}
}
