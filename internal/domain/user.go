package domain

import "time"

// Role gates which operations a user may invoke.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// ParseRole reports whether s names a role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleCitizen, RoleStaff, RoleAdmin:
		return r, true
	}
	return "", false
}

// User is an account of any role. IssueCount tracks issues the user has reported.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	PhotoURL     string
	Role         Role
	IssueCount   int
	IsPremium    bool
	IsBlocked    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
