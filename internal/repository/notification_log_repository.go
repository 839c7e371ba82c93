package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

// NotificationLogRepository persists the per-condition email dedup log.
type NotificationLogRepository struct {
	db *sqlx.DB
}

// NewNotificationLogRepository constructs the repository.
func NewNotificationLogRepository(db *sqlx.DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

// Exists checks the dedup tuple (tenant, employee, session date, kind, shift
// start) so a sweep never mails the same condition twice.
func (r *NotificationLogRepository) Exists(ctx context.Context, tenantID, employeeID string, sessionDate time.Time, kind models.NotificationKind, shiftStart string) (bool, error) {
	query := `SELECT COUNT(*) FROM notification_logs
WHERE tenant_id = $1 AND employee_id = $2 AND session_date = $3 AND kind = $4 AND shift_start = $5`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID, employeeID, models.DateOnly(sessionDate), kind, shiftStart); err != nil {
		return false, fmt.Errorf("check notification log: %w", err)
	}
	return count > 0, nil
}

// Create records a sent notification. Conflicts on the dedup tuple are
// ignored so concurrent sweeps stay idempotent.
func (r *NotificationLogRepository) Create(ctx context.Context, log models.NotificationLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.SentAt.IsZero() {
		log.SentAt = time.Now().UTC()
	}
	query := `INSERT INTO notification_logs (id, tenant_id, employee_id, session_date, kind, shift_start, sent_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (tenant_id, employee_id, session_date, kind, shift_start) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query,
		log.ID, log.TenantID, log.EmployeeID, models.DateOnly(log.SessionDate), log.Kind, log.ShiftStart, log.SentAt)
	if err != nil {
		return fmt.Errorf("create notification log: %w", err)
	}
	return nil
}
