package models

import "time"

// TenantPolicy is the per-tenant attendance policy snapshot consulted by the
// engine. Loaded once per request; settings changes apply to the next punch.
type TenantPolicy struct {
	TenantID string `db:"tenant_id" json:"tenant_id"`

	LateToleranceEntry          int     `db:"late_tolerance_entry" json:"late_tolerance_entry"`
	EarlyToleranceExit          int     `db:"early_tolerance_exit" json:"early_tolerance_exit"`
	AbsencePartialThresholdHrs  float64 `db:"absence_partial_threshold_hours" json:"absence_partial_threshold_hours"`
	OvertimeRoundingMinutes     int     `db:"overtime_rounding_minutes" json:"overtime_rounding_minutes"`
	OvertimeMinimumThresholdMin int     `db:"overtime_minimum_threshold_minutes" json:"overtime_minimum_threshold_minutes"`
	BreakDurationMinutes        int     `db:"break_duration_minutes" json:"break_duration_minutes"`
	RequireBreakPunch           bool    `db:"require_break_punch" json:"require_break_punch"`
	RequireScheduleForPunch     bool    `db:"require_schedule_for_punch" json:"require_schedule_for_punch"`
	WorkingDays                 []int   `db:"-" json:"working_days"`

	DoubleInDetectionWindowHrs int `db:"double_in_detection_window_hours" json:"double_in_detection_window_hours"`
	OrphanInThresholdHrs       int `db:"orphan_in_threshold_hours" json:"orphan_in_threshold_hours"`
	DoublePunchToleranceMin    int `db:"double_punch_tolerance_minutes" json:"double_punch_tolerance_minutes"`
	PatternAlertThreshold      int `db:"pattern_alert_threshold" json:"pattern_alert_threshold"`
	MissingOutWindowHrs        int `db:"missing_out_detection_window_hours" json:"missing_out_detection_window_hours"`

	MinimumRestHours           float64 `db:"minimum_rest_hours" json:"minimum_rest_hours"`
	MinimumRestHoursNightShift float64 `db:"minimum_rest_hours_night_shift" json:"minimum_rest_hours_night_shift"`

	AbsenceDetectionBufferMin    int `db:"absence_detection_buffer_minutes" json:"absence_detection_buffer_minutes"`
	LateNotificationThresholdMin int `db:"late_notification_threshold_minutes" json:"late_notification_threshold_minutes"`

	HolidayOvertimeEnabled       bool    `db:"holiday_overtime_enabled" json:"holiday_overtime_enabled"`
	HolidayOvertimeAsNormalHours bool    `db:"holiday_overtime_as_normal_hours" json:"holiday_overtime_as_normal_hours"`
	HolidayOvertimeRate          float64 `db:"holiday_overtime_rate" json:"holiday_overtime_rate"`
}

// DefaultTenantPolicy returns the policy applied when a tenant has no
// persisted settings row, or to fill unset fields.
func DefaultTenantPolicy(tenantID string) TenantPolicy {
	return TenantPolicy{
		TenantID:                     tenantID,
		LateToleranceEntry:           10,
		EarlyToleranceExit:           5,
		AbsencePartialThresholdHrs:   2,
		OvertimeRoundingMinutes:      15,
		OvertimeMinimumThresholdMin:  30,
		BreakDurationMinutes:         60,
		RequireBreakPunch:            false,
		RequireScheduleForPunch:      false,
		WorkingDays:                  []int{1, 2, 3, 4, 5, 6},
		DoubleInDetectionWindowHrs:   24,
		OrphanInThresholdHrs:         12,
		DoublePunchToleranceMin:      2,
		PatternAlertThreshold:        3,
		MissingOutWindowHrs:          12,
		MinimumRestHours:             11,
		MinimumRestHoursNightShift:   11,
		AbsenceDetectionBufferMin:    60,
		LateNotificationThresholdMin: 15,
		HolidayOvertimeEnabled:       true,
		HolidayOvertimeAsNormalHours: false,
		HolidayOvertimeRate:          2.0,
	}
}

// IsWorkingDay checks a weekday against the tenant's working-days set.
// Days use ISO numbering 1=Monday..7=Sunday; 0 normalizes to 7.
func (p TenantPolicy) IsWorkingDay(t time.Time) bool {
	day := int(t.UTC().Weekday())
	if day == 0 {
		day = 7
	}
	for _, d := range p.WorkingDays {
		if d == day {
			return true
		}
	}
	return false
}
