package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserRole represents the roles recognised by the allocation endpoints.
type UserRole string

const (
	RoleAdmin        UserRole = "admin"
	RoleCentralStore UserRole = "central_store_admin"
	RoleLabAssistant UserRole = "lab_assistant"
	RoleFaculty      UserRole = "faculty"
)

// ActorClaims represents the verified access token payload of the calling actor.
type ActorClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	LabID  string   `json:"lab_id,omitempty"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the actor may use admin-only allocation paths such as the grace window.
func (c *ActorClaims) IsAdmin() bool {
	if c == nil {
		return false
	}
	return c.Role == RoleAdmin || c.Role == RoleCentralStore
}

// PerformedBy returns the identity recorded on ledger entries.
func (c *ActorClaims) PerformedBy() string {
	if c == nil || c.UserID == "" {
		return "system"
	}
	return c.UserID
}

// Lab is an entry of the lab directory.
type Lab struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Active bool   `db:"active" json:"active"`
}

// Pagination describes list pagination metadata.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
