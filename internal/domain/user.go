package domain

import "time"

// Role is the access level carried by a user and their token.
type Role string

const (
	RoleUser     Role = "USER"
	RoleEmployee Role = "EMPLOYEE"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleEmployee, RoleAdmin:
		return true
	}
	return false
}

// User is anyone who can sign in: complainants, employees and admins.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
