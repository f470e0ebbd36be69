package domain

import "time"

// UserRole enumerates access levels. New users default to REQUESTER; the
// only path to another role is role administration.
type UserRole string

const (
	RoleRequester UserRole = "REQUESTER"
	RoleAgent     UserRole = "AGENT"
	RoleAdmin     UserRole = "ADMIN"
)

// ValidRole reports whether r is one of the three known roles.
func ValidRole(r UserRole) bool {
	switch r {
	case RoleRequester, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// User is the identity record keyed by email.
type User struct {
	ID         string
	Email      string
	Name       string
	Department string
	Role       UserRole
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
