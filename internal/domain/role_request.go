package domain

import "time"

// RoleRequestStatus tracks a role request decision.
type RoleRequestStatus string

const (
	RoleRequestPending  RoleRequestStatus = "PENDING"
	RoleRequestApproved RoleRequestStatus = "APPROVED"
	RoleRequestRejected RoleRequestStatus = "REJECTED"
)

// RoleRequest is a user's petition to become an employee.
type RoleRequest struct {
	ID            int64
	UserID        int64
	RequestedRole Role
	Level         EmployeeLevel
	Reason        string
	Status        RoleRequestStatus
	ApprovedBy    *int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
