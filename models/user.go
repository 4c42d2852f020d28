package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a member of a tenant's user directory
type User struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "tenant_users"
}

// NewUser creates a new User instance with a generated ID.
// Email is stored as given; uniqueness is carried by the ID only.
func NewUser(tenantID, email, name string, createdAt time.Time) *User {
	return &User{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Email:     email,
		Name:      name,
		CreatedAt: createdAt,
	}
}

// Clone returns a copy that callers may keep without aliasing directory state
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
