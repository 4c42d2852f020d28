package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/llm-tenant-gateway/models"
	"github.com/upb/llm-tenant-gateway/repositories"
)

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO tenant_users (id, tenant_id, email, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.TenantID,
		user.Email,
		user.Name,
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Debug("user created", zap.String("id", user.ID), zap.String("tenant_id", user.TenantID))
	return nil
}

// Delete deletes a user
func (r *UserRepository) Delete(ctx context.Context, tenantID, id string) error {
	query := `DELETE FROM tenant_users WHERE tenant_id = $1 AND id = $2`

	result, err := r.db.ExecContext(ctx, query, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Debug("user deleted", zap.String("id", id), zap.Int64("rows", rowsAffected))
	return nil
}
