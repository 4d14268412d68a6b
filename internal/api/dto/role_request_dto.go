package dto

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// SubmitRoleRequest payload. UserID defaults to the caller.
type SubmitRoleRequest struct {
	UserID        int64  `json:"userId"`
	RequestedRole string `json:"requestedRole"`
	Level         string `json:"level" validate:"required"`
	Reason        string `json:"reason" validate:"max=2000"`
}

// RoleRequestResponse is the public view of a role request.
type RoleRequestResponse struct {
	ID            int64                    `json:"id"`
	UserID        int64                    `json:"userId"`
	RequestedRole domain.Role              `json:"requestedRole"`
	Level         domain.EmployeeLevel     `json:"level"`
	Reason        string                   `json:"reason"`
	Status        domain.RoleRequestStatus `json:"status"`
	ApprovedBy    *int64                   `json:"approvedBy"`
	CreatedAt     time.Time                `json:"createdAt"`
	UpdatedAt     time.Time                `json:"updatedAt"`
}

// EmployeeResponse is the public view of an employee profile.
type EmployeeResponse struct {
	ID                int64                `json:"id"`
	UserID            int64                `json:"userId"`
	Name              string               `json:"name"`
	Email             string               `json:"email"`
	Level             domain.EmployeeLevel `json:"level"`
	MaxComplaints     int                  `json:"maxComplaints"`
	CurrentComplaints int                  `json:"currentComplaints"`
	CreatedAt         time.Time            `json:"createdAt"`
}

// NotificationResponse is one in-app notification.
type NotificationResponse struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}
