package dto

import (
	"github.com/triagehq/request-triage/internal/domain"
)

// UserResponse is the wire representation of a user record.
type UserResponse struct {
	ID         string          `json:"id"`
	Email      string          `json:"email"`
	Name       string          `json:"name"`
	Role       domain.UserRole `json:"role"`
	Department string          `json:"department"`
}

// MeResponse wraps identity resolution.
type MeResponse struct {
	User UserResponse `json:"user"`
}

// ListUsersResponse wraps an admin user search.
type ListUsersResponse struct {
	Users []UserResponse `json:"users"`
}

// SetUserRoleRequest payload.
type SetUserRoleRequest struct {
	Email      string `json:"email"`
	Role       string `json:"role"`
	Name       string `json:"name"`
	Department string `json:"department"`
}

// SetUserRoleResponse acknowledges a role change.
type SetUserRoleResponse struct {
	OK   bool         `json:"ok"`
	User UserResponse `json:"user"`
}
