package domain

import "time"

// Notification is an in-app message for a single user.
type Notification struct {
	ID        int64
	UserID    int64
	Message   string
	IsRead    bool
	CreatedAt time.Time
}
