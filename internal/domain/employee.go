package domain

import (
	"strings"
	"time"
)

// EmployeeLevel is the seniority requested in a role request.
type EmployeeLevel string

const (
	LevelBeginner EmployeeLevel = "BEGINNER"
	LevelSenior   EmployeeLevel = "SENIOR"
	LevelManager  EmployeeLevel = "MANAGER"
)

// DefaultMaxComplaints seeds the capacity of a newly created employee.
const DefaultMaxComplaints = 10

// ParseEmployeeLevel normalizes s; ok is false for unknown levels.
func ParseEmployeeLevel(s string) (EmployeeLevel, bool) {
	level := EmployeeLevel(strings.ToUpper(strings.TrimSpace(s)))
	switch level {
	case LevelBeginner, LevelSenior, LevelManager:
		return level, true
	}
	return "", false
}

// Employee is the capacity profile of a user promoted through a role request.
type Employee struct {
	ID                int64
	UserID            int64
	Level             EmployeeLevel
	MaxComplaints     int
	CurrentComplaints int
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// Populated from the users table on reads.
	Name  string
	Email string
}

// HasCapacity reports whether another complaint fits under MaxComplaints.
func (e *Employee) HasCapacity() bool {
	return e.CurrentComplaints < e.MaxComplaints
}
