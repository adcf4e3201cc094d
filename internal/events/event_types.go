package events

import (
	"time"

	"github.com/spec-kit/callpool-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventItemClaimed        EventType = "item_claimed"
	EventItemResolved       EventType = "item_resolved"
	EventItemReset          EventType = "item_reset"
	EventConversionRecorded EventType = "conversion_recorded"
	EventConversionCleared  EventType = "conversion_cleared"
	EventModeratorCreated   EventType = "moderator_created"
)

// All lists every event type, for observers subscribing to the full stream.
func All() []EventType {
	return []EventType{
		EventItemClaimed,
		EventItemResolved,
		EventItemReset,
		EventConversionRecorded,
		EventConversionCleared,
		EventModeratorCreated,
	}
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type        domain.SubjectType `json:"type"`
	ModeratorID *string            `json:"moderator_id,omitempty"`
}

// Event represents a committed state transition emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ItemID    string      `json:"item_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ItemClaimedPayload payload.
type ItemClaimedPayload struct {
	OwnerID  string `json:"owner_id"`
	Campaign string `json:"campaign"`
	Bulk     bool   `json:"bulk"`
}

// ItemResolvedPayload payload.
type ItemResolvedPayload struct {
	OwnerID *string        `json:"owner_id,omitempty"`
	Outcome domain.Outcome `json:"outcome"`
}

// ItemResetPayload payload.
type ItemResetPayload struct {
	PreviousStatus domain.WorkItemStatus `json:"previous_status"`
	PreviousOwner  *string               `json:"previous_owner,omitempty"`
}

// ConversionPayload payload for recorded/cleared conversion events.
type ConversionPayload struct {
	OwnerID *string `json:"owner_id,omitempty"`
	Note    string  `json:"note,omitempty"`
}

// ModeratorCreatedPayload payload.
type ModeratorCreatedPayload struct {
	Contact    string               `json:"contact"`
	Role       domain.ModeratorRole `json:"role"`
	DailyQuota int                  `json:"daily_quota"`
}
