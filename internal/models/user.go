package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin  = "ADMIN"
	RoleUser   = "USER"
	RoleViewer = "VIEWER"
)

type User struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenantId"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	// PasswordHash is stored with the entity document but must never be
	// returned from the API; handlers go through Public().
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public returns a copy safe to serialize in API responses.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}
