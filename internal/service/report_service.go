package service

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/callpool-service/internal/config"
	"github.com/spec-kit/callpool-service/internal/domain"
	"github.com/spec-kit/callpool-service/internal/repository"
	apperrors "github.com/spec-kit/callpool-service/pkg/util"
)

// Granularity selects the calendar bucket size for trend reports.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
)

// ReportFilter optionally restricts a summary by dimension.
type ReportFilter struct {
	Campaign *string
	OwnerID  *string
	Outcome  *domain.Outcome
}

// Summary holds window-scoped counts and the derived completion rate.
// Counts apply the half-open window to the timestamp relevant to each
// metric: createdAt for totals, claimedAt for claims, resolvedAt for
// resolutions and convertedAt for conversions. All counts are additive
// over a partition of the window; CompletionRate is derived and is not.
type Summary struct {
	Total          int64   `json:"total"`
	Claimed        int64   `json:"claimed"`
	Resolved       int64   `json:"resolved"`
	Capable        int64   `json:"capable"`
	NotCapable     int64   `json:"not_capable"`
	Conversions    int64   `json:"conversions"`
	CompletionRate float64 `json:"completion_rate"`
}

// Bucket is one calendar-aligned sub-window of a trend report.
type Bucket struct {
	Label   string    `json:"label"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Summary Summary   `json:"summary"`
}

// ReportService computes read-only aggregations over the item pool. It
// never mutates the store and always reads counts fresh at call time.
type ReportService struct {
	items repository.WorkItemRepository
	loc   *time.Location
}

// NewReportService creates the service.
func NewReportService(cfg config.EngineConfig, itemRepo repository.WorkItemRepository) *ReportService {
	return &ReportService{
		items: itemRepo,
		loc:   cfg.Location(),
	}
}

// Summarize computes counts over the half-open window [from, to).
func (s *ReportService) Summarize(ctx context.Context, from, to time.Time, filter ReportFilter) (Summary, error) {
	if to.Before(from) {
		return Summary{}, apperrors.NewValidationError("window end precedes start", nil)
	}
	counts, err := s.items.Summarize(ctx, repository.SummaryFilter{
		From:     from,
		To:       to,
		Campaign: filter.Campaign,
		OwnerID:  filter.OwnerID,
		Outcome:  filter.Outcome,
	})
	if err != nil {
		return Summary{}, apperrors.NewStoreUnavailable(err)
	}
	return summaryFromCounts(counts), nil
}

// BucketBy splits [from, to) into contiguous, non-overlapping sub-windows
// anchored to calendar boundaries in the engine timezone and summarizes
// each. The first and last buckets are clipped to the window, so the
// buckets partition it exactly: no gaps, no overlaps.
func (s *ReportService) BucketBy(ctx context.Context, from, to time.Time, granularity Granularity, filter ReportFilter) ([]Bucket, error) {
	switch granularity {
	case GranularityDay, GranularityWeek, GranularityMonth:
	default:
		return nil, apperrors.NewValidationError("unknown granularity", map[string]any{"granularity": granularity})
	}
	if to.Before(from) {
		return nil, apperrors.NewValidationError("window end precedes start", nil)
	}

	buckets := []Bucket{}
	cursor := from
	for cursor.Before(to) {
		end := s.nextBoundary(cursor, granularity)
		if end.After(to) {
			end = to
		}
		summary, err := s.Summarize(ctx, cursor, end, filter)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, Bucket{
			Label:   s.bucketLabel(cursor, granularity),
			Start:   cursor,
			End:     end,
			Summary: summary,
		})
		cursor = end
	}
	return buckets, nil
}

// nextBoundary returns the first calendar boundary strictly after t.
func (s *ReportService) nextBoundary(t time.Time, granularity Granularity) time.Time {
	local := t.In(s.loc)
	switch granularity {
	case GranularityWeek:
		// Weeks start Monday.
		daysIntoWeek := (int(local.Weekday()) + 6) % 7
		monday := time.Date(local.Year(), local.Month(), local.Day()-daysIntoWeek, 0, 0, 0, 0, s.loc)
		return monday.AddDate(0, 0, 7)
	case GranularityMonth:
		return time.Date(local.Year(), local.Month()+1, 1, 0, 0, 0, 0, s.loc)
	default:
		return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, s.loc)
	}
}

func (s *ReportService) bucketLabel(start time.Time, granularity Granularity) string {
	local := start.In(s.loc)
	switch granularity {
	case GranularityMonth:
		return local.Format("2006-01")
	case GranularityWeek:
		year, week := local.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	default:
		return local.Format("2006-01-02")
	}
}

func summaryFromCounts(counts repository.SummaryCounts) Summary {
	summary := Summary{
		Total:       counts.Total,
		Claimed:     counts.Claimed,
		Resolved:    counts.Resolved,
		Capable:     counts.Capable,
		NotCapable:  counts.NotCapable,
		Conversions: counts.Conversions,
	}
	if counts.Claimed > 0 {
		summary.CompletionRate = float64(counts.Resolved) / float64(counts.Claimed)
	}
	return summary
}
