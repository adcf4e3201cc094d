package domain

// SubjectType differentiates moderator vs system actors.
type SubjectType string

const (
	SubjectTypeModerator SubjectType = "MODERATOR"
	SubjectTypeSystem    SubjectType = "SYSTEM"
)
