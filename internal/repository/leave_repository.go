package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

// LeaveRepository reads the leave and recovery-day records owned by the
// leave subsystem.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs the repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// FindCovering returns a leave whose interval includes the date, preferring
// approved rows when several overlap.
func (r *LeaveRepository) FindCovering(ctx context.Context, tenantID, employeeID string, date time.Time) (*models.Leave, error) {
	day := models.DateOnly(date)
	query := `SELECT id, tenant_id, employee_id, type, status, start_date, end_date, created_at
FROM leaves
WHERE tenant_id = $1 AND employee_id = $2 AND start_date <= $3 AND end_date >= $3
AND status <> $4
ORDER BY CASE WHEN status = $5 THEN 1 ELSE 0 END, created_at DESC
LIMIT 1`
	var leave models.Leave
	err := r.db.GetContext(ctx, &leave, query, tenantID, employeeID, day, models.LeaveRejected, models.LeavePending)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find covering leave: %w", err)
	}
	return &leave, nil
}

// HasRecoveryDay reports whether a recovery day exists on the date. Pending
// requests count so detection stays quiet while a request is in flight.
func (r *LeaveRepository) HasRecoveryDay(ctx context.Context, tenantID, employeeID string, date time.Time) (bool, error) {
	query := `SELECT COUNT(*) FROM recovery_days
WHERE tenant_id = $1 AND employee_id = $2 AND date = $3 AND status IN ('APPROVED', 'PENDING')`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID, employeeID, models.DateOnly(date)); err != nil {
		return false, fmt.Errorf("check recovery day: %w", err)
	}
	return count > 0, nil
}
