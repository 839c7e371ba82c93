package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

// OvertimeRepository persists detected overtime blocks.
type OvertimeRepository struct {
	db *sqlx.DB
}

// NewOvertimeRepository constructs the repository.
func NewOvertimeRepository(db *sqlx.DB) *OvertimeRepository {
	return &OvertimeRepository{db: db}
}

// ExistsForSource reports whether a block was already created from the given
// source punch, the detection job's idempotency check.
func (r *OvertimeRepository) ExistsForSource(ctx context.Context, tenantID, sourceID string) (bool, error) {
	query := `SELECT COUNT(*) FROM overtimes WHERE tenant_id = $1 AND source_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID, sourceID); err != nil {
		return false, fmt.Errorf("check overtime source: %w", err)
	}
	return count > 0, nil
}

// Create inserts an overtime block.
func (r *OvertimeRepository) Create(ctx context.Context, overtime models.Overtime) error {
	now := time.Now().UTC()
	if overtime.CreatedAt.IsZero() {
		overtime.CreatedAt = now
	}
	overtime.UpdatedAt = now
	query := `INSERT INTO overtimes (id, tenant_id, employee_id, date, minutes, type, status, source_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query,
		overtime.ID, overtime.TenantID, overtime.EmployeeID, overtime.Date,
		overtime.Minutes, overtime.Type, overtime.Status, overtime.SourceID,
		overtime.CreatedAt, overtime.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create overtime: %w", err)
	}
	return nil
}

// ListPendingSince returns pending blocks dated on or after the given day.
func (r *OvertimeRepository) ListPendingSince(ctx context.Context, tenantID string, since time.Time) ([]models.Overtime, error) {
	query := `SELECT id, tenant_id, employee_id, date, minutes, type, status, source_id, created_at, updated_at
FROM overtimes
WHERE tenant_id = $1 AND status = $2 AND date >= $3
ORDER BY date ASC`
	var rows []models.Overtime
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, models.OvertimePending, models.DateOnly(since)); err != nil {
		return nil, fmt.Errorf("list pending overtime: %w", err)
	}
	return rows, nil
}
