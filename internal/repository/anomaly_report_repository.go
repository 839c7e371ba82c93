package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

// AnomalyReportRepository adds the read-only aggregation queries the
// dashboard and reports consume on top of the attendance store.
type AnomalyReportRepository struct {
	*AttendanceRepository
}

// NewAnomalyReportRepository constructs the repository.
func NewAnomalyReportRepository(db *sqlx.DB) *AnomalyReportRepository {
	return &AnomalyReportRepository{AttendanceRepository: NewAttendanceRepository(db)}
}

// CountByKind aggregates anomalies per kind over a date range.
func (r *AnomalyReportRepository) CountByKind(ctx context.Context, tenantID string, from, to time.Time) ([]models.KindCount, error) {
	query := `SELECT anomaly_type AS kind, COUNT(*) AS count
FROM attendance_records
WHERE tenant_id = $1 AND has_anomaly = TRUE AND anomaly_type IS NOT NULL
AND timestamp >= $2 AND timestamp <= $3
GROUP BY anomaly_type
ORDER BY count DESC`
	var rows []models.KindCount
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, from, to); err != nil {
		return nil, fmt.Errorf("count anomalies by kind: %w", err)
	}
	return rows, nil
}

// CountByEmployee aggregates anomalies per employee, with the employee's
// published schedule count over the same range for rate computation.
func (r *AnomalyReportRepository) CountByEmployee(ctx context.Context, tenantID string, from, to time.Time, limit int) ([]models.EmployeeAnomalyCount, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT ar.employee_id,
COALESCE(e.first_name || ' ' || e.last_name, ar.employee_id) AS employee_name,
COUNT(*) AS count,
(SELECT COUNT(*) FROM schedules s
 WHERE s.tenant_id = $1 AND s.employee_id = ar.employee_id
 AND s.status = $4 AND s.date >= $2 AND s.date <= $3) AS scheduled_days
FROM attendance_records ar
LEFT JOIN employees e ON e.id = ar.employee_id
WHERE ar.tenant_id = $1 AND ar.has_anomaly = TRUE AND ar.timestamp >= $2 AND ar.timestamp <= $3
GROUP BY ar.employee_id, e.first_name, e.last_name
ORDER BY count DESC
LIMIT %d`, limit)
	var rows []models.EmployeeAnomalyCount
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, from, to, models.SchedulePublished); err != nil {
		return nil, fmt.Errorf("count anomalies by employee: %w", err)
	}
	return rows, nil
}

// CountByEmployeeAndKind returns per-employee anomaly counts broken down by
// kind, for recurrence detection.
func (r *AnomalyReportRepository) CountByEmployeeAndKind(ctx context.Context, tenantID string, from, to time.Time) (map[string]map[models.AnomalyKind]int, error) {
	query := `SELECT employee_id, anomaly_type AS kind, COUNT(*) AS count
FROM attendance_records
WHERE tenant_id = $1 AND has_anomaly = TRUE AND anomaly_type IS NOT NULL
AND timestamp >= $2 AND timestamp <= $3
GROUP BY employee_id, anomaly_type`
	var rows []struct {
		EmployeeID string             `db:"employee_id"`
		Kind       models.AnomalyKind `db:"kind"`
		Count      int                `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, from, to); err != nil {
		return nil, fmt.Errorf("count anomalies by employee and kind: %w", err)
	}
	result := make(map[string]map[models.AnomalyKind]int, len(rows))
	for _, row := range rows {
		if result[row.EmployeeID] == nil {
			result[row.EmployeeID] = make(map[models.AnomalyKind]int)
		}
		result[row.EmployeeID][row.Kind] = row.Count
	}
	return result, nil
}

// DailyCounts aggregates anomalies per calendar day.
func (r *AnomalyReportRepository) DailyCounts(ctx context.Context, tenantID string, from, to time.Time) ([]models.DailyAnomalyCount, error) {
	query := `SELECT DATE_TRUNC('day', timestamp AT TIME ZONE 'UTC') AS date, COUNT(*) AS count
FROM attendance_records
WHERE tenant_id = $1 AND has_anomaly = TRUE AND timestamp >= $2 AND timestamp <= $3
GROUP BY 1
ORDER BY 1 ASC`
	var rows []models.DailyAnomalyCount
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, from, to); err != nil {
		return nil, fmt.Errorf("daily anomaly counts: %w", err)
	}
	return rows, nil
}

// PresenceStats counts scheduled, present and on-time employee-days over a
// range. A day counts as present when an IN punch exists against a published
// schedule, and as on-time when that IN carried no late minutes.
func (r *AnomalyReportRepository) PresenceStats(ctx context.Context, tenantID string, from, to time.Time) (models.PresenceStats, error) {
	query := `SELECT
(SELECT COUNT(*) FROM schedules s
 WHERE s.tenant_id = $1 AND s.status = $4 AND s.suspended_by_id IS NULL
 AND s.date >= $2 AND s.date <= $3) AS scheduled_days,
(SELECT COUNT(DISTINCT (ar.employee_id, DATE_TRUNC('day', ar.timestamp AT TIME ZONE 'UTC')))
 FROM attendance_records ar
 JOIN schedules s ON s.tenant_id = ar.tenant_id AND s.employee_id = ar.employee_id
  AND s.status = $4 AND s.date = DATE_TRUNC('day', ar.timestamp AT TIME ZONE 'UTC')
 WHERE ar.tenant_id = $1 AND ar.type = $5 AND ar.timestamp >= $2 AND ar.timestamp <= $3) AS present_days,
(SELECT COUNT(DISTINCT (ar.employee_id, DATE_TRUNC('day', ar.timestamp AT TIME ZONE 'UTC')))
 FROM attendance_records ar
 JOIN schedules s ON s.tenant_id = ar.tenant_id AND s.employee_id = ar.employee_id
  AND s.status = $4 AND s.date = DATE_TRUNC('day', ar.timestamp AT TIME ZONE 'UTC')
 WHERE ar.tenant_id = $1 AND ar.type = $5 AND ar.timestamp >= $2 AND ar.timestamp <= $3
 AND COALESCE(ar.late_minutes, 0) = 0) AS on_time_days`
	var stats models.PresenceStats
	if err := r.db.GetContext(ctx, &stats, query, tenantID, from, to, models.SchedulePublished, models.PunchIn); err != nil {
		return models.PresenceStats{}, fmt.Errorf("presence stats: %w", err)
	}
	return stats, nil
}

// CountAnomaliesForEmployee counts one employee's anomalies over a range.
func (r *AnomalyReportRepository) CountAnomaliesForEmployee(ctx context.Context, tenantID, employeeID string, from, to time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM attendance_records
WHERE tenant_id = $1 AND employee_id = $2 AND has_anomaly = TRUE
AND timestamp >= $3 AND timestamp <= $4`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID, employeeID, from, to); err != nil {
		return 0, fmt.Errorf("count employee anomalies: %w", err)
	}
	return count, nil
}

// EmployeeNames resolves display names for a set of employee ids.
func (r *AnomalyReportRepository) EmployeeNames(ctx context.Context, tenantID string, employeeIDs []string) (map[string]string, error) {
	if len(employeeIDs) == 0 {
		return map[string]string{}, nil
	}
	query := `SELECT id, first_name || ' ' || last_name AS full_name
FROM employees WHERE tenant_id = $1 AND id = ANY($2)`
	var rows []struct {
		ID       string `db:"id"`
		FullName string `db:"full_name"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, pq.Array(employeeIDs)); err != nil {
		return nil, fmt.Errorf("resolve employee names: %w", err)
	}
	names := make(map[string]string, len(rows))
	for _, row := range rows {
		names[row.ID] = row.FullName
	}
	return names, nil
}
