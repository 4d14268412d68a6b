package dto

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// CreateComplaintRequest accepts JSON or multipart form fields.
type CreateComplaintRequest struct {
	Title       string `json:"title" form:"title" validate:"required,max=200"`
	Description string `json:"description" form:"description" validate:"required,max=5000"`
	Category    string `json:"category" form:"category" validate:"max=50"`
}

// CreateComplaintResponse confirms a filed complaint.
type CreateComplaintResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// AssignComplaintRequest payload.
type AssignComplaintRequest struct {
	EmployeeID int64 `json:"employeeId" validate:"required,gt=0"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=2000"`
}

// AttachmentResponse describes a stored complaint file.
type AttachmentResponse struct {
	Key         string `json:"key,omitempty"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// ComplaintResponse is the public view of a complaint.
type ComplaintResponse struct {
	ID            int64                  `json:"id"`
	UserID        int64                  `json:"userId"`
	SubmitterName string                 `json:"submitterName,omitempty"`
	AssignedTo    *int64                 `json:"assignedTo"`
	AssigneeName  string                 `json:"assigneeName,omitempty"`
	AssignedBy    *int64                 `json:"assignedBy"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Category      string                 `json:"category"`
	Status        domain.ComplaintStatus `json:"status"`
	Note          string                 `json:"note"`
	Escalated     bool                   `json:"escalated"`
	Attachment    *AttachmentResponse    `json:"attachment"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
	AssignedAt    *time.Time             `json:"assignedAt"`
	ResolvedAt    *time.Time             `json:"resolvedAt"`
}

// ComplaintHistoryResponse is one audit entry.
type ComplaintHistoryResponse struct {
	ID         int64                      `json:"id"`
	ChangedBy  *int64                     `json:"changedBy"`
	ChangeType domain.ComplaintChangeType `json:"changeType"`
	OldValue   map[string]any             `json:"oldValue"`
	NewValue   map[string]any             `json:"newValue"`
	CreatedAt  time.Time                  `json:"createdAt"`
}
