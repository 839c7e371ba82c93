package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

// PolicyRepository loads per-tenant attendance settings.
type PolicyRepository struct {
	db *sqlx.DB
}

// NewPolicyRepository constructs the repository.
func NewPolicyRepository(db *sqlx.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

type policyRow struct {
	models.TenantPolicy
	WorkingDaysCSV string `db:"working_days"`
}

// PolicyFor returns the tenant's policy, falling back to defaults when no
// settings row exists.
func (r *PolicyRepository) PolicyFor(ctx context.Context, tenantID string) (models.TenantPolicy, error) {
	query := `SELECT tenant_id, late_tolerance_entry, early_tolerance_exit,
absence_partial_threshold_hours, overtime_rounding_minutes, overtime_minimum_threshold_minutes,
break_duration_minutes, require_break_punch, require_schedule_for_punch, working_days,
double_in_detection_window_hours, orphan_in_threshold_hours, double_punch_tolerance_minutes,
pattern_alert_threshold, missing_out_detection_window_hours,
minimum_rest_hours, minimum_rest_hours_night_shift,
absence_detection_buffer_minutes, late_notification_threshold_minutes,
holiday_overtime_enabled, holiday_overtime_as_normal_hours, holiday_overtime_rate
FROM tenant_settings WHERE tenant_id = $1`
	var row policyRow
	if err := r.db.GetContext(ctx, &row, query, tenantID); err != nil {
		if err == sql.ErrNoRows {
			return models.DefaultTenantPolicy(tenantID), nil
		}
		return models.TenantPolicy{}, fmt.Errorf("load tenant policy: %w", err)
	}
	policy := row.TenantPolicy
	policy.WorkingDays = parseWorkingDays(row.WorkingDaysCSV)
	if len(policy.WorkingDays) == 0 {
		policy.WorkingDays = models.DefaultTenantPolicy(tenantID).WorkingDays
	}
	return policy, nil
}

// Update upserts the tenant's settings row.
func (r *PolicyRepository) Update(ctx context.Context, policy models.TenantPolicy) (models.TenantPolicy, error) {
	query := `INSERT INTO tenant_settings (tenant_id, late_tolerance_entry, early_tolerance_exit,
absence_partial_threshold_hours, overtime_rounding_minutes, overtime_minimum_threshold_minutes,
break_duration_minutes, require_break_punch, require_schedule_for_punch, working_days,
double_in_detection_window_hours, orphan_in_threshold_hours, double_punch_tolerance_minutes,
pattern_alert_threshold, missing_out_detection_window_hours,
minimum_rest_hours, minimum_rest_hours_night_shift,
absence_detection_buffer_minutes, late_notification_threshold_minutes,
holiday_overtime_enabled, holiday_overtime_as_normal_hours, holiday_overtime_rate)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
ON CONFLICT (tenant_id) DO UPDATE SET
late_tolerance_entry = EXCLUDED.late_tolerance_entry,
early_tolerance_exit = EXCLUDED.early_tolerance_exit,
absence_partial_threshold_hours = EXCLUDED.absence_partial_threshold_hours,
overtime_rounding_minutes = EXCLUDED.overtime_rounding_minutes,
overtime_minimum_threshold_minutes = EXCLUDED.overtime_minimum_threshold_minutes,
break_duration_minutes = EXCLUDED.break_duration_minutes,
require_break_punch = EXCLUDED.require_break_punch,
require_schedule_for_punch = EXCLUDED.require_schedule_for_punch,
working_days = EXCLUDED.working_days,
double_in_detection_window_hours = EXCLUDED.double_in_detection_window_hours,
orphan_in_threshold_hours = EXCLUDED.orphan_in_threshold_hours,
double_punch_tolerance_minutes = EXCLUDED.double_punch_tolerance_minutes,
pattern_alert_threshold = EXCLUDED.pattern_alert_threshold,
missing_out_detection_window_hours = EXCLUDED.missing_out_detection_window_hours,
minimum_rest_hours = EXCLUDED.minimum_rest_hours,
minimum_rest_hours_night_shift = EXCLUDED.minimum_rest_hours_night_shift,
absence_detection_buffer_minutes = EXCLUDED.absence_detection_buffer_minutes,
late_notification_threshold_minutes = EXCLUDED.late_notification_threshold_minutes,
holiday_overtime_enabled = EXCLUDED.holiday_overtime_enabled,
holiday_overtime_as_normal_hours = EXCLUDED.holiday_overtime_as_normal_hours,
holiday_overtime_rate = EXCLUDED.holiday_overtime_rate`
	_, err := r.db.ExecContext(ctx, query,
		policy.TenantID, policy.LateToleranceEntry, policy.EarlyToleranceExit,
		policy.AbsencePartialThresholdHrs, policy.OvertimeRoundingMinutes, policy.OvertimeMinimumThresholdMin,
		policy.BreakDurationMinutes, policy.RequireBreakPunch, policy.RequireScheduleForPunch,
		formatWorkingDays(policy.WorkingDays),
		policy.DoubleInDetectionWindowHrs, policy.OrphanInThresholdHrs, policy.DoublePunchToleranceMin,
		policy.PatternAlertThreshold, policy.MissingOutWindowHrs,
		policy.MinimumRestHours, policy.MinimumRestHoursNightShift,
		policy.AbsenceDetectionBufferMin, policy.LateNotificationThresholdMin,
		policy.HolidayOvertimeEnabled, policy.HolidayOvertimeAsNormalHours, policy.HolidayOvertimeRate)
	if err != nil {
		return models.TenantPolicy{}, fmt.Errorf("update tenant policy: %w", err)
	}
	return r.PolicyFor(ctx, policy.TenantID)
}

func parseWorkingDays(csv string) []int {
	parts := strings.Split(csv, ",")
	days := make([]int, 0, len(parts))
	for _, part := range parts {
		day, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || day < 1 || day > 7 {
			continue
		}
		days = append(days, day)
	}
	return days
}

func formatWorkingDays(days []int) string {
	parts := make([]string, 0, len(days))
	for _, day := range days {
		parts = append(parts, strconv.Itoa(day))
	}
	return strings.Join(parts, ",")
}
