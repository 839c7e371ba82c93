package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

// PunchAttemptRepository records every ingestion attempt for audit purposes.
type PunchAttemptRepository struct {
	db *sqlx.DB
}

// NewPunchAttemptRepository constructs the repository.
func NewPunchAttemptRepository(db *sqlx.DB) *PunchAttemptRepository {
	return &PunchAttemptRepository{db: db}
}

// Log inserts one attempt row, success or failure alike.
func (r *PunchAttemptRepository) Log(ctx context.Context, attempt models.PunchAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO punch_attempts (id, tenant_id, employee_id, device_id, timestamp, type, success, fail_code, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		attempt.ID, attempt.TenantID, attempt.EmployeeID, attempt.DeviceID,
		attempt.Timestamp, attempt.Type, attempt.Success, attempt.FailCode, attempt.CreatedAt)
	if err != nil {
		return fmt.Errorf("log punch attempt: %w", err)
	}
	return nil
}

// ListRecent returns the newest attempts for a tenant, bounded by limit.
func (r *PunchAttemptRepository) ListRecent(ctx context.Context, tenantID string, limit int) ([]models.PunchAttempt, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT id, tenant_id, employee_id, device_id, timestamp, type, success, fail_code, created_at
FROM punch_attempts WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT %d`, limit)
	var rows []models.PunchAttempt
	if err := r.db.SelectContext(ctx, &rows, query, tenantID); err != nil {
		return nil, fmt.Errorf("list punch attempts: %w", err)
	}
	return rows, nil
}
