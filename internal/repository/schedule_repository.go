package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

const scheduleColumns = `id, tenant_id, employee_id, shift_id, date, status,
custom_start_time, custom_end_time, suspended_by_id, created_at, updated_at`

const shiftColumns = `id, tenant_id, name, start_time, end_time, break_duration, created_at, updated_at`

// ScheduleRepository handles persistence for shift assignments.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// FindByEmployeeAndDate returns the employee's schedule on a date with the
// given status, shift attached.
func (r *ScheduleRepository) FindByEmployeeAndDate(ctx context.Context, tenantID, employeeID string, date time.Time, status models.ScheduleStatus) (*models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules
WHERE tenant_id = $1 AND employee_id = $2 AND date = $3 AND status = $4
LIMIT 1`, scheduleColumns)
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, tenantID, employeeID, models.DateOnly(date), status); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find schedule: %w", err)
	}
	if err := r.attachShift(ctx, &sched); err != nil {
		return nil, err
	}
	return &sched, nil
}

// FindAnyByEmployeeAndDate returns the employee's schedule on a date
// regardless of publication status, preferring published rows.
func (r *ScheduleRepository) FindAnyByEmployeeAndDate(ctx context.Context, tenantID, employeeID string, date time.Time) (*models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules
WHERE tenant_id = $1 AND employee_id = $2 AND date = $3
ORDER BY CASE WHEN status = $4 THEN 0 ELSE 1 END, created_at DESC
LIMIT 1`, scheduleColumns)
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, tenantID, employeeID, models.DateOnly(date), models.SchedulePublished); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find any schedule: %w", err)
	}
	if err := r.attachShift(ctx, &sched); err != nil {
		return nil, err
	}
	return &sched, nil
}

// ListPublishedForDate returns all published schedules on a date with shifts
// attached.
func (r *ScheduleRepository) ListPublishedForDate(ctx context.Context, tenantID string, date time.Time) ([]models.Schedule, error) {
	status := models.SchedulePublished
	return r.listForDate(ctx, tenantID, date, &status)
}

// ListForDate returns all schedules on a date regardless of status.
func (r *ScheduleRepository) ListForDate(ctx context.Context, tenantID string, date time.Time) ([]models.Schedule, error) {
	return r.listForDate(ctx, tenantID, date, nil)
}

func (r *ScheduleRepository) listForDate(ctx context.Context, tenantID string, date time.Time, status *models.ScheduleStatus) ([]models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE tenant_id = $1 AND date = $2`, scheduleColumns)
	args := []interface{}{tenantID, models.DateOnly(date)}
	if status != nil {
		query += " AND status = $3"
		args = append(args, *status)
	}
	query += " ORDER BY employee_id ASC"
	var rows []models.Schedule
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	if err := r.attachShifts(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduleRepository) attachShift(ctx context.Context, sched *models.Schedule) error {
	if sched.ShiftID == "" {
		return nil
	}
	query := fmt.Sprintf(`SELECT %s FROM shifts WHERE id = $1`, shiftColumns)
	var shift models.Shift
	if err := r.db.GetContext(ctx, &shift, query, sched.ShiftID); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("load shift: %w", err)
	}
	sched.Shift = &shift
	return nil
}

func (r *ScheduleRepository) attachShifts(ctx context.Context, scheds []models.Schedule) error {
	if len(scheds) == 0 {
		return nil
	}
	ids := make([]string, 0, len(scheds))
	seen := make(map[string]bool, len(scheds))
	for _, sched := range scheds {
		if sched.ShiftID != "" && !seen[sched.ShiftID] {
			seen[sched.ShiftID] = true
			ids = append(ids, sched.ShiftID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`SELECT %s FROM shifts WHERE id = ANY($1)`, shiftColumns)
	var shifts []models.Shift
	if err := r.db.SelectContext(ctx, &shifts, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load shifts: %w", err)
	}
	byID := make(map[string]*models.Shift, len(shifts))
	for i := range shifts {
		byID[shifts[i].ID] = &shifts[i]
	}
	for i := range scheds {
		scheds[i].Shift = byID[scheds[i].ShiftID]
	}
	return nil
}
