package domain

import "time"

// WorkItemStatus enumerates lifecycle states for work items.
type WorkItemStatus string

const (
	WorkItemStatusUnclaimed WorkItemStatus = "UNCLAIMED"
	WorkItemStatusClaimed   WorkItemStatus = "CLAIMED"
	WorkItemStatusResolved  WorkItemStatus = "RESOLVED"
)

// Outcome is the terminal result recorded when an item is resolved.
type Outcome string

const (
	OutcomeCapable    Outcome = "CAPABLE"
	OutcomeNotCapable Outcome = "NOT_CAPABLE"
)

// WorkItem is the unit of assignable work: a phone number inside a campaign
// partition. OwnerID is non-nil exactly when status is not UNCLAIMED, and an
// item has at most one owner at any time.
type WorkItem struct {
	ID             string
	Key            string
	Campaign       string
	Status         WorkItemStatus
	Outcome        *Outcome
	Converted      bool
	ConvertedAt    *time.Time
	ConversionNote string
	OwnerID        *string
	CreatedAt      time.Time
	ClaimedAt      *time.Time
	ResolvedAt     *time.Time
}

var allowedTransitions = map[WorkItemStatus][]WorkItemStatus{
	WorkItemStatusUnclaimed: {WorkItemStatusClaimed},
	WorkItemStatusClaimed:   {WorkItemStatusResolved, WorkItemStatusUnclaimed},
	WorkItemStatusResolved:  {WorkItemStatusUnclaimed},
}

// IsValidTransition reports whether moving from current to next is legal.
func IsValidTransition(current, next WorkItemStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
