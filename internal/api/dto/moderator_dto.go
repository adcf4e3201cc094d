package dto

import (
	"time"

	"github.com/spec-kit/callpool-service/internal/domain"
)

// ModeratorResponse represents a moderator.
type ModeratorResponse struct {
	ID          string               `json:"id"`
	DisplayName string               `json:"display_name"`
	Contact     string               `json:"contact"`
	Role        domain.ModeratorRole `json:"role"`
	Active      bool                 `json:"active"`
	DailyQuota  int                  `json:"daily_quota"`
	Partition   string               `json:"partition"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// NewModeratorResponse maps a domain moderator.
func NewModeratorResponse(moderator *domain.Moderator) ModeratorResponse {
	return ModeratorResponse{
		ID:          moderator.ID,
		DisplayName: moderator.DisplayName,
		Contact:     moderator.Contact,
		Role:        moderator.Role,
		Active:      moderator.Active,
		DailyQuota:  moderator.DailyQuota,
		Partition:   moderator.Partition,
		CreatedAt:   moderator.CreatedAt,
		UpdatedAt:   moderator.UpdatedAt,
	}
}

// UpdateModeratorRequest payload for administrative updates. Only set
// fields are applied.
type UpdateModeratorRequest struct {
	DailyQuota *int                  `json:"daily_quota,omitempty"`
	Role       *domain.ModeratorRole `json:"role,omitempty"`
	Active     *bool                 `json:"active,omitempty"`
	Partition  *string               `json:"partition,omitempty"`
}

// ProfileResponse combines the moderator with live quota usage.
type ProfileResponse struct {
	Moderator      ModeratorResponse `json:"moderator"`
	ClaimedToday   int               `json:"claimed_today"`
	RemainingToday int               `json:"remaining_today"`
}
