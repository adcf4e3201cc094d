package domain

import "time"

// ModeratorRole enumerates capability levels.
type ModeratorRole string

const (
	RoleStandard  ModeratorRole = "STANDARD"
	RoleElevated  ModeratorRole = "ELEVATED"
	RoleSuperuser ModeratorRole = "SUPERUSER"
)

// Moderator is the actor to whom work items are assigned. Deactivation flips
// Active; records are never deleted so historical attribution survives.
type Moderator struct {
	ID          string
	DisplayName string
	Contact     string
	Role        ModeratorRole
	Active      bool
	DailyQuota  int
	Partition   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AutoAssignable reports whether the moderator may receive self-service
// claims. Elevated and superuser roles never receive auto-assigned items.
func (m *Moderator) AutoAssignable() bool {
	return m != nil && m.Active && m.Role == RoleStandard
}
