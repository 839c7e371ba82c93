package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

const attendanceColumns = `id, tenant_id, employee_id, site_id, device_id, timestamp, type, method,
latitude, longitude, has_anomaly, anomaly_type, anomaly_note,
is_corrected, corrected_by, corrected_at, correction_note,
needs_approval, approval_status, approved_by, approved_at,
hours_worked, late_minutes, early_leave_minutes, overtime_minutes,
is_generated, created_at, updated_at`

// AttendanceRepository handles persistence for punch events.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts a punch event and returns the stored row.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	query := fmt.Sprintf(`INSERT INTO attendance_records (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
RETURNING %s`, attendanceColumns, attendanceColumns)
	var stored models.AttendanceRecord
	err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.TenantID, record.EmployeeID, record.SiteID, record.DeviceID,
		record.Timestamp, record.Type, record.Method, record.Latitude, record.Longitude,
		record.HasAnomaly, record.AnomalyType, record.AnomalyNote,
		record.IsCorrected, record.CorrectedBy, record.CorrectedAt, record.CorrectionNote,
		record.NeedsApproval, record.ApprovalStatus, record.ApprovedBy, record.ApprovedAt,
		record.HoursWorked, record.LateMinutes, record.EarlyLeaveMinutes, record.OvertimeMinutes,
		record.IsGenerated, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create attendance record: %w", err)
	}
	return &stored, nil
}

// FindByID fetches one record scoped to a tenant.
func (r *AttendanceRepository) FindByID(ctx context.Context, tenantID, id string) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE tenant_id = $1 AND id = $2`, attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, tenantID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find attendance record: %w", err)
	}
	return &record, nil
}

// Update persists correction and classification changes on an existing record.
func (r *AttendanceRepository) Update(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	record.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE attendance_records SET
timestamp = $3, has_anomaly = $4, anomaly_type = $5, anomaly_note = $6,
is_corrected = $7, corrected_by = $8, corrected_at = $9, correction_note = $10,
needs_approval = $11, approval_status = $12, approved_by = $13, approved_at = $14,
hours_worked = $15, late_minutes = $16, early_leave_minutes = $17, overtime_minutes = $18,
updated_at = $19
WHERE tenant_id = $1 AND id = $2
RETURNING %s`, attendanceColumns)
	var stored models.AttendanceRecord
	err := r.db.GetContext(ctx, &stored, query,
		record.TenantID, record.ID,
		record.Timestamp, record.HasAnomaly, record.AnomalyType, record.AnomalyNote,
		record.IsCorrected, record.CorrectedBy, record.CorrectedAt, record.CorrectionNote,
		record.NeedsApproval, record.ApprovalStatus, record.ApprovedBy, record.ApprovedAt,
		record.HoursWorked, record.LateMinutes, record.EarlyLeaveMinutes, record.OvertimeMinutes,
		record.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("update attendance record: %w", err)
	}
	return &stored, nil
}

// Delete removes a record scoped to a tenant.
func (r *AttendanceRepository) Delete(ctx context.Context, tenantID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete attendance record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete attendance record: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns records matching the filter plus the unpaged total.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	return r.list(ctx, filter, nil)
}

// ListCorrected returns only corrected records matching the filter.
func (r *AttendanceRepository) ListCorrected(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	return r.list(ctx, filter, []string{"is_corrected = TRUE"})
}

// ListAnomalies returns only anomalous records matching the filter.
func (r *AttendanceRepository) ListAnomalies(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	return r.list(ctx, filter, []string{"has_anomaly = TRUE"})
}

func (r *AttendanceRepository) list(ctx context.Context, filter models.AttendanceFilter, extra []string) ([]models.AttendanceRecord, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.TenantID != "" {
		where = append(where, fmt.Sprintf("tenant_id = $%d", len(args)+1))
		args = append(args, filter.TenantID)
	}
	if filter.EmployeeID != "" {
		where = append(where, fmt.Sprintf("employee_id = $%d", len(args)+1))
		args = append(args, filter.EmployeeID)
	}
	if filter.SiteID != "" {
		where = append(where, fmt.Sprintf("site_id = $%d", len(args)+1))
		args = append(args, filter.SiteID)
	}
	if filter.Type != nil && filter.Type.Valid() {
		where = append(where, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if filter.AnomalyType != nil {
		where = append(where, fmt.Sprintf("anomaly_type = $%d", len(args)+1))
		args = append(args, *filter.AnomalyType)
	}
	if filter.HasAnomaly != nil {
		where = append(where, fmt.Sprintf("has_anomaly = $%d", len(args)+1))
		args = append(args, *filter.HasAnomaly)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("timestamp >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("timestamp <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	where = append(where, extra...)
	whereClause := strings.Join(where, " AND ")

	sortBy := filter.SortBy
	allowedSort := map[string]string{
		"timestamp":  "timestamp",
		"type":       "type",
		"created_at": "created_at",
	}
	if sortBy == "" {
		sortBy = "timestamp"
	}
	sortColumn, ok := allowedSort[sortBy]
	if !ok {
		sortColumn = "timestamp"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		attendanceColumns, whereClause, sortColumn, order, size, offset)
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM attendance_records WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance records: %w", err)
	}
	return rows, total, nil
}

// FindByEmployeeAndDay returns the employee's punches on one UTC calendar day
// ordered by timestamp.
func (r *AttendanceRepository) FindByEmployeeAndDay(ctx context.Context, tenantID, employeeID string, day time.Time) ([]models.AttendanceRecord, error) {
	start := models.DateOnly(day)
	end := start.AddDate(0, 0, 1)
	query := fmt.Sprintf(`SELECT %s FROM attendance_records
WHERE tenant_id = $1 AND employee_id = $2 AND timestamp >= $3 AND timestamp < $4
ORDER BY timestamp ASC`, attendanceColumns)
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, employeeID, start, end); err != nil {
		return nil, fmt.Errorf("find attendance by day: %w", err)
	}
	return rows, nil
}

// LastOutBefore returns the employee's most recent OUT strictly before the
// given instant.
func (r *AttendanceRepository) LastOutBefore(ctx context.Context, tenantID, employeeID string, before time.Time) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records
WHERE tenant_id = $1 AND employee_id = $2 AND type = $3 AND timestamp < $4
ORDER BY timestamp DESC LIMIT 1`, attendanceColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, tenantID, employeeID, models.PunchOut, before); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find last out: %w", err)
	}
	return &record, nil
}

// CountAnomaliesSince counts anomalies of one kind since a date.
func (r *AttendanceRepository) CountAnomaliesSince(ctx context.Context, tenantID, employeeID string, kind models.AnomalyKind, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM attendance_records
WHERE tenant_id = $1 AND employee_id = $2 AND anomaly_type = $3 AND timestamp >= $4`
	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID, employeeID, kind, since); err != nil {
		return 0, fmt.Errorf("count anomalies: %w", err)
	}
	return count, nil
}

// AverageClockMinutes returns the employee's average punch clock time as
// minutes since midnight for one punch type, nil when no history exists.
func (r *AttendanceRepository) AverageClockMinutes(ctx context.Context, tenantID, employeeID string, punchType models.PunchType, since time.Time) (*int, error) {
	query := `SELECT AVG(EXTRACT(HOUR FROM timestamp AT TIME ZONE 'UTC') * 60 + EXTRACT(MINUTE FROM timestamp AT TIME ZONE 'UTC'))
FROM attendance_records
WHERE tenant_id = $1 AND employee_id = $2 AND type = $3 AND timestamp >= $4`
	var avg sql.NullFloat64
	if err := r.db.GetContext(ctx, &avg, query, tenantID, employeeID, punchType, since); err != nil {
		return nil, fmt.Errorf("average clock minutes: %w", err)
	}
	if !avg.Valid {
		return nil, nil
	}
	minutes := int(avg.Float64)
	return &minutes, nil
}

// FindOutsWithOvertime returns the day's OUT punches carrying at least the
// given overtime minutes.
func (r *AttendanceRepository) FindOutsWithOvertime(ctx context.Context, tenantID string, day time.Time, minMinutes int) ([]models.AttendanceRecord, error) {
	start := models.DateOnly(day)
	end := start.AddDate(0, 0, 1)
	query := fmt.Sprintf(`SELECT %s FROM attendance_records
WHERE tenant_id = $1 AND type = $2 AND timestamp >= $3 AND timestamp < $4
AND overtime_minutes IS NOT NULL AND overtime_minutes >= $5
ORDER BY timestamp ASC`, attendanceColumns)
	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, models.PunchOut, start, end, minMinutes); err != nil {
		return nil, fmt.Errorf("find overtime outs: %w", err)
	}
	return rows, nil
}

// MarkAnomaly flags an existing record with an anomaly detected after the fact.
func (r *AttendanceRepository) MarkAnomaly(ctx context.Context, tenantID, recordID string, kind models.AnomalyKind, note string) error {
	query := `UPDATE attendance_records
SET has_anomaly = TRUE, anomaly_type = $3, anomaly_note = $4, updated_at = $5
WHERE tenant_id = $1 AND id = $2`
	result, err := r.db.ExecContext(ctx, query, tenantID, recordID, kind, note, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark anomaly: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark anomaly: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
