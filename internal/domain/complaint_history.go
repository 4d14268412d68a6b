package domain

import "time"

// ComplaintChangeType captures what changed in a history entry.
type ComplaintChangeType string

const (
	ChangeTypeStatus   ComplaintChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee ComplaintChangeType = "ASSIGNEE_CHANGE"
)

// ComplaintHistory is an immutable audit trail entry. ChangedBy is nil for
// system changes such as automatic escalation.
type ComplaintHistory struct {
	ID          int64
	ComplaintID int64
	ChangedBy   *int64
	ChangeType  ComplaintChangeType
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}
