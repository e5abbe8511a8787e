package model

import "time"

// Role enumerates the fixed set of user roles within a tenant.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTrainer Role = "trainer"
	RoleClient  Role = "client"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTrainer, RoleClient:
		return true
	}
	return false
}

// User mirrors the 'users' table. The password hash lives in the same table
// but is deliberately absent here; it is only ever read through the dedicated
// password-hash projection and never serialized.
type User struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenantId"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Role        Role       `json:"role"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewUser carries the fields needed to insert a user row.
type NewUser struct {
	TenantID     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
}
