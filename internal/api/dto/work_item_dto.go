package dto

import (
	"time"

	"github.com/spec-kit/callpool-service/internal/domain"
)

// ClaimRequest payload for self-service top-up.
type ClaimRequest struct {
	Count    int     `json:"count"`
	Campaign *string `json:"campaign,omitempty"`
}

// DistributeRequest payload for administrative bulk allocation.
type DistributeRequest struct {
	ModeratorIDs   []string `json:"moderator_ids"`
	PerWorkerCount int      `json:"per_worker_count"`
	Campaign       *string  `json:"campaign,omitempty"`
}

// ImportItemsRequest payload for feeding the pool.
type ImportItemsRequest struct {
	Campaign string   `json:"campaign"`
	Keys     []string `json:"keys"`
}

// ResolveRequest payload.
type ResolveRequest struct {
	Outcome domain.Outcome `json:"outcome"`
}

// ConversionRequest payload.
type ConversionRequest struct {
	Note string `json:"note"`
}

// WorkItemResponse represents a work item.
type WorkItemResponse struct {
	ID             string                `json:"id"`
	Key            string                `json:"key"`
	Campaign       string                `json:"campaign"`
	Status         domain.WorkItemStatus `json:"status"`
	Outcome        *domain.Outcome       `json:"outcome,omitempty"`
	Converted      bool                  `json:"converted"`
	ConvertedAt    *time.Time            `json:"converted_at,omitempty"`
	ConversionNote string                `json:"conversion_note,omitempty"`
	OwnerID        *string               `json:"owner_id,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	ClaimedAt      *time.Time            `json:"claimed_at,omitempty"`
	ResolvedAt     *time.Time            `json:"resolved_at,omitempty"`
}

// NewWorkItemResponse maps a domain item.
func NewWorkItemResponse(item *domain.WorkItem) WorkItemResponse {
	return WorkItemResponse{
		ID:             item.ID,
		Key:            item.Key,
		Campaign:       item.Campaign,
		Status:         item.Status,
		Outcome:        item.Outcome,
		Converted:      item.Converted,
		ConvertedAt:    item.ConvertedAt,
		ConversionNote: item.ConversionNote,
		OwnerID:        item.OwnerID,
		CreatedAt:      item.CreatedAt,
		ClaimedAt:      item.ClaimedAt,
		ResolvedAt:     item.ResolvedAt,
	}
}

// NewWorkItemResponses maps a slice of domain items.
func NewWorkItemResponses(items []domain.WorkItem) []WorkItemResponse {
	result := make([]WorkItemResponse, 0, len(items))
	for i := range items {
		result = append(result, NewWorkItemResponse(&items[i]))
	}
	return result
}
