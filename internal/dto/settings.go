package dto

// UpdateSettingsRequest partially updates the tenant attendance policy.
// Omitted fields keep their current value.
type UpdateSettingsRequest struct {
	LateToleranceEntry          *int     `json:"lateToleranceEntry" validate:"omitempty,min=0,max=240"`
	EarlyToleranceExit          *int     `json:"earlyToleranceExit" validate:"omitempty,min=0,max=240"`
	AbsencePartialThresholdHrs  *float64 `json:"absencePartialThresholdHours" validate:"omitempty,gt=0,max=24"`
	OvertimeRoundingMinutes     *int     `json:"overtimeRoundingMinutes" validate:"omitempty,min=1,max=60"`
	OvertimeMinimumThresholdMin *int     `json:"overtimeMinimumThresholdMinutes" validate:"omitempty,min=0,max=480"`
	BreakDurationMinutes        *int     `json:"breakDurationMinutes" validate:"omitempty,min=0,max=480"`
	RequireBreakPunch           *bool    `json:"requireBreakPunch"`
	RequireScheduleForPunch     *bool    `json:"requireScheduleForPunch"`
	WorkingDays                 []int    `json:"workingDays" validate:"omitempty,min=1,max=7,dive,min=1,max=7"`

	DoubleInDetectionWindowHrs *int `json:"doubleInDetectionWindowHours" validate:"omitempty,min=1,max=48"`
	OrphanInThresholdHrs       *int `json:"orphanInThresholdHours" validate:"omitempty,min=1,max=48"`
	DoublePunchToleranceMin    *int `json:"doublePunchToleranceMinutes" validate:"omitempty,min=0,max=60"`
	PatternAlertThreshold      *int `json:"patternAlertThreshold" validate:"omitempty,min=1,max=31"`
	MissingOutWindowHrs        *int `json:"missingOutWindowHours" validate:"omitempty,min=1,max=48"`

	MinimumRestHours           *float64 `json:"minimumRestHours" validate:"omitempty,min=0,max=24"`
	MinimumRestHoursNightShift *float64 `json:"minimumRestHoursNightShift" validate:"omitempty,min=0,max=24"`

	AbsenceDetectionBufferMin    *int `json:"absenceDetectionBufferMinutes" validate:"omitempty,min=0,max=480"`
	LateNotificationThresholdMin *int `json:"lateNotificationThresholdMinutes" validate:"omitempty,min=0,max=240"`

	HolidayOvertimeEnabled       *bool    `json:"holidayOvertimeEnabled"`
	HolidayOvertimeAsNormalHours *bool    `json:"holidayOvertimeAsNormalHours"`
	HolidayOvertimeRate          *float64 `json:"holidayOvertimeRate" validate:"omitempty,min=1,max=5"`
}
