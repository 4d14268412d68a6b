package events

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated       EventType = "complaint_created"
	EventComplaintAssigned      EventType = "complaint_assigned"
	EventComplaintStatusChanged EventType = "complaint_status_changed"
	EventComplaintEscalated     EventType = "complaint_escalated"
	EventComplaintResolved      EventType = "complaint_resolved"
	EventRoleRequestDecided     EventType = "role_request_decided"
)

// Actor identifies who triggered the event. A nil UserID means the system.
type Actor struct {
	UserID *int64 `json:"userId,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	ComplaintID   int64     `json:"complaintId,omitempty"`
	RoleRequestID int64     `json:"roleRequestId,omitempty"`
	Actor         Actor     `json:"actor"`
	Timestamp     time.Time `json:"timestamp"`
	Payload       any       `json:"payload"`
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	Title       string `json:"title"`
	SubmitterID int64  `json:"submitterId"`
	Category    string `json:"category"`
}

// ComplaintAssignedPayload payload.
type ComplaintAssignedPayload struct {
	Title              string `json:"title"`
	SubmitterID        int64  `json:"submitterId"`
	AssigneeID         int64  `json:"assigneeId"`
	PreviousAssigneeID *int64 `json:"previousAssigneeId,omitempty"`
}

// ComplaintStatusChangedPayload payload.
type ComplaintStatusChangedPayload struct {
	Title       string                 `json:"title"`
	SubmitterID int64                  `json:"submitterId"`
	AssigneeID  *int64                 `json:"assigneeId,omitempty"`
	OldStatus   domain.ComplaintStatus `json:"oldStatus"`
	NewStatus   domain.ComplaintStatus `json:"newStatus"`
	Note        string                 `json:"note,omitempty"`
}

// RoleRequestDecidedPayload payload.
type RoleRequestDecidedPayload struct {
	UserID        int64                    `json:"userId"`
	RequestedRole domain.Role              `json:"requestedRole"`
	Level         domain.EmployeeLevel     `json:"level"`
	Status        domain.RoleRequestStatus `json:"status"`
}
