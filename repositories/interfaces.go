package repositories

import (
	"context"

	"github.com/upb/llm-tenant-gateway/models"
)

// AuditRepository archives audit log entries
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// List returns a tenant's archived entries matching filter, oldest first
	List(ctx context.Context, tenantID string, filter models.AuditFilter, limit, offset int) ([]*models.AuditLog, error)
}

// UserRepository mirrors the tenant user directory
type UserRepository interface {
	// Create inserts a new user row
	Create(ctx context.Context, user *models.User) error

	// Delete removes a user; deleting a missing user is not an error
	Delete(ctx context.Context, tenantID, id string) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users     UserRepository
	AuditLogs AuditRepository
}
