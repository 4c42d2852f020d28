package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/upb/llm-tenant-gateway/models"
	"github.com/upb/llm-tenant-gateway/repositories"
)

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new audit log entry. Re-inserting the same ID is a no-op.
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	details, err := log.DetailsJSON()
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	query := `
		INSERT INTO audit_logs (id, tenant_id, user_id, action, details, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = r.db.ExecContext(ctx, query,
		log.ID,
		log.TenantID,
		log.UserID,
		string(log.Action),
		details,
		log.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted", zap.String("id", log.ID), zap.String("action", string(log.Action)))
	return nil
}

// List retrieves a tenant's audit logs matching filter with pagination
func (r *AuditRepository) List(ctx context.Context, tenantID string, filter models.AuditFilter, limit, offset int) ([]*models.AuditLog, error) {
	conds := []string{"tenant_id = $1"}
	args := []any{tenantID}

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.UserID != "" {
		add("user_id = $%d", filter.UserID)
	}
	if filter.Action != "" {
		add("action = $%d", string(filter.Action))
	}
	if filter.StartDate != nil {
		add("timestamp >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("timestamp <= $%d", *filter.EndDate)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT id, tenant_id, user_id, action, details, timestamp
		FROM audit_logs
		WHERE %s
		ORDER BY timestamp ASC, id ASC
		LIMIT $%d OFFSET $%d
	`, strings.Join(conds, " AND "), len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		var (
			log     models.AuditLog
			action  string
			details []byte
		)
		if err := rows.Scan(&log.ID, &log.TenantID, &log.UserID, &action, &details, &log.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		log.Action = models.AuditAction(action)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &log.Details); err != nil {
				return nil, fmt.Errorf("failed to decode audit details: %w", err)
			}
		}
		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", err)
	}

	return logs, nil
}
