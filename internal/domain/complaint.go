package domain

import (
	"strings"
	"time"
)

// ComplaintStatus enumerates lifecycle states for complaints.
type ComplaintStatus string

const (
	ComplaintStatusPending    ComplaintStatus = "PENDING"
	ComplaintStatusAssigned   ComplaintStatus = "ASSIGNED"
	ComplaintStatusInProgress ComplaintStatus = "IN_PROGRESS"
	ComplaintStatusEscalated  ComplaintStatus = "ESCALATED"
	ComplaintStatusResolved   ComplaintStatus = "RESOLVED"
)

// DefaultComplaintCategory is used when a complaint is filed without one.
const DefaultComplaintCategory = "GENERAL"

// ComplaintStatuses lists every status in lifecycle order.
var ComplaintStatuses = []ComplaintStatus{
	ComplaintStatusPending,
	ComplaintStatusAssigned,
	ComplaintStatusInProgress,
	ComplaintStatusEscalated,
	ComplaintStatusResolved,
}

// ParseComplaintStatus normalizes s. OPEN is accepted as an alias of PENDING.
func ParseComplaintStatus(s string) (ComplaintStatus, bool) {
	status := ComplaintStatus(strings.ToUpper(strings.TrimSpace(s)))
	if status == "OPEN" {
		return ComplaintStatusPending, true
	}
	for _, known := range ComplaintStatuses {
		if status == known {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transitions leave s.
func (s ComplaintStatus) IsTerminal() bool {
	return s == ComplaintStatusResolved
}

var allowedTransitions = map[ComplaintStatus][]ComplaintStatus{
	ComplaintStatusPending:    {ComplaintStatusAssigned},
	ComplaintStatusAssigned:   {ComplaintStatusInProgress, ComplaintStatusEscalated},
	ComplaintStatusInProgress: {ComplaintStatusEscalated, ComplaintStatusResolved},
	ComplaintStatusEscalated:  {ComplaintStatusInProgress, ComplaintStatusResolved},
	ComplaintStatusResolved:   {},
}

// CanTransition reports whether current may move to next. Staying in a
// non-terminal status is allowed so notes can be updated in place.
func CanTransition(current, next ComplaintStatus) bool {
	if current == next {
		return !current.IsTerminal()
	}
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ValidTransitionsFrom returns the statuses reachable from current.
func ValidTransitionsFrom(current ComplaintStatus) []ComplaintStatus {
	next := allowedTransitions[current]
	out := make([]ComplaintStatus, len(next))
	copy(out, next)
	return out
}

// Attachment describes a file stored alongside a complaint.
type Attachment struct {
	Key         string
	FileName    string
	ContentType string
	SizeBytes   int64
}

// Complaint is the aggregate for a filed grievance.
type Complaint struct {
	ID          int64
	UserID      int64
	AssignedTo  *int64
	AssignedBy  *int64
	Title       string
	Description string
	Category    string
	Status      ComplaintStatus
	Note        string
	Escalated   bool
	Attachment  *Attachment
	CreatedAt   time.Time
	UpdatedAt   time.Time
	AssignedAt  *time.Time
	ResolvedAt  *time.Time

	// Populated from the users table on list reads.
	SubmitterName string
	AssigneeName  string
}

// MarkResolved sets RESOLVED and stamps the resolution time, never earlier
// than the creation time.
func (c *Complaint) MarkResolved(now time.Time) {
	if now.Before(c.CreatedAt) {
		now = c.CreatedAt
	}
	c.Status = ComplaintStatusResolved
	c.ResolvedAt = &now
	c.UpdatedAt = now
}
