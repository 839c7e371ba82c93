package models

import "time"

// PunchType classifies a single attendance event.
type PunchType string

const (
	PunchIn           PunchType = "IN"
	PunchOut          PunchType = "OUT"
	PunchBreakStart   PunchType = "BREAK_START"
	PunchBreakEnd     PunchType = "BREAK_END"
	PunchMissionStart PunchType = "MISSION_START"
	PunchMissionEnd   PunchType = "MISSION_END"
)

// Valid returns true when the punch type is a supported value.
func (t PunchType) Valid() bool {
	switch t {
	case PunchIn, PunchOut, PunchBreakStart, PunchBreakEnd, PunchMissionStart, PunchMissionEnd:
		return true
	default:
		return false
	}
}

// IsBreak reports whether the punch is a break boundary.
func (t PunchType) IsBreak() bool {
	return t == PunchBreakStart || t == PunchBreakEnd
}

// PunchMethod describes how the punch was captured.
type PunchMethod string

const (
	MethodDevice    PunchMethod = "DEVICE"
	MethodMobileGPS PunchMethod = "MOBILE_GPS"
	MethodManual    PunchMethod = "MANUAL"
	MethodWeb       PunchMethod = "WEB"
)

// AnomalyKind is the closed set of anomaly classifications.
type AnomalyKind string

const (
	AnomalyLeaveConflict    AnomalyKind = "LEAVE_CONFLICT"
	AnomalyDoubleIn         AnomalyKind = "DOUBLE_IN"
	AnomalyMissingIn        AnomalyKind = "MISSING_IN"
	AnomalyMissingOut       AnomalyKind = "MISSING_OUT"
	AnomalyAbsenceTechnical AnomalyKind = "ABSENCE_TECHNICAL"
	AnomalyAbsencePartial   AnomalyKind = "ABSENCE_PARTIAL"
	AnomalyLate             AnomalyKind = "LATE"
	AnomalyEarlyLeave       AnomalyKind = "EARLY_LEAVE"
	AnomalyAbsence          AnomalyKind = "ABSENCE"
	AnomalyWeekendWork      AnomalyKind = "WEEKEND_WORK_UNAUTHORIZED"
	AnomalyInsufficientRest AnomalyKind = "INSUFFICIENT_REST"
	AnomalyHolidayWorked    AnomalyKind = "JOUR_FERIE_TRAVAILLE"
	AnomalyPresenceExterne  AnomalyKind = "PRESENCE_EXTERNE"
)

// ApprovalStatus tracks the correction approval state machine.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// AttendanceRecord is one persisted punch event with its derived fields.
type AttendanceRecord struct {
	ID         string      `db:"id" json:"id"`
	TenantID   string      `db:"tenant_id" json:"tenant_id"`
	EmployeeID string      `db:"employee_id" json:"employee_id"`
	SiteID     *string     `db:"site_id" json:"site_id,omitempty"`
	DeviceID   *string     `db:"device_id" json:"device_id,omitempty"`
	Timestamp  time.Time   `db:"timestamp" json:"timestamp"`
	Type       PunchType   `db:"type" json:"type"`
	Method     PunchMethod `db:"method" json:"method"`
	Latitude   *float64    `db:"latitude" json:"latitude,omitempty"`
	Longitude  *float64    `db:"longitude" json:"longitude,omitempty"`

	HasAnomaly  bool         `db:"has_anomaly" json:"has_anomaly"`
	AnomalyType *AnomalyKind `db:"anomaly_type" json:"anomaly_type,omitempty"`
	AnomalyNote *string      `db:"anomaly_note" json:"anomaly_note,omitempty"`

	IsCorrected    bool       `db:"is_corrected" json:"is_corrected"`
	CorrectedBy    *string    `db:"corrected_by" json:"corrected_by,omitempty"`
	CorrectedAt    *time.Time `db:"corrected_at" json:"corrected_at,omitempty"`
	CorrectionNote *string    `db:"correction_note" json:"correction_note,omitempty"`

	NeedsApproval  bool            `db:"needs_approval" json:"needs_approval"`
	ApprovalStatus *ApprovalStatus `db:"approval_status" json:"approval_status,omitempty"`
	ApprovedBy     *string         `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt     *time.Time      `db:"approved_at" json:"approved_at,omitempty"`

	HoursWorked       *float64 `db:"hours_worked" json:"hours_worked,omitempty"`
	LateMinutes       *int     `db:"late_minutes" json:"late_minutes,omitempty"`
	EarlyLeaveMinutes *int     `db:"early_leave_minutes" json:"early_leave_minutes,omitempty"`
	OvertimeMinutes   *int     `db:"overtime_minutes" json:"overtime_minutes,omitempty"`

	IsGenerated bool      `db:"is_generated" json:"is_generated"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter scopes listing queries.
type AttendanceFilter struct {
	TenantID    string
	EmployeeID  string
	SiteID      string
	Type        *PunchType
	AnomalyType *AnomalyKind
	HasAnomaly  *bool
	DateFrom    *time.Time
	DateTo      *time.Time
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// SuggestionKind enumerates correction suggestion strategies.
type SuggestionKind string

const (
	SuggestIgnoreDuplicate       SuggestionKind = "IGNORE_DUPLICATE"
	SuggestAddMissingOut         SuggestionKind = "ADD_MISSING_OUT"
	SuggestDeleteFirstIn         SuggestionKind = "DELETE_FIRST_IN"
	SuggestDeleteSecondIn        SuggestionKind = "DELETE_SECOND_IN"
	SuggestAddOutBetween         SuggestionKind = "ADD_OUT_BETWEEN"
	SuggestCloseYesterdaySession SuggestionKind = "CLOSE_YESTERDAY_SESSION"
	SuggestCloseSessionMulti     SuggestionKind = "CLOSE_SESSION_MULTI_SHIFT"
	SuggestAddMissingIn          SuggestionKind = "ADD_MISSING_IN"
)

// SuggestionSource names where a suggested timestamp came from.
type SuggestionSource string

const (
	SourcePlanning          SuggestionSource = "PLANNING"
	SourceHistoricalAverage SuggestionSource = "HISTORICAL_AVERAGE"
	SourceEventBased        SuggestionSource = "EVENT_BASED"
	SourceLastEvent         SuggestionSource = "LAST_EVENT"
	SourceSiteClosing       SuggestionSource = "SITE_CLOSING"
	SourceDefault           SuggestionSource = "DEFAULT"
)

// CorrectionSuggestion proposes a remedial action for an anomalous punch.
type CorrectionSuggestion struct {
	Kind       SuggestionKind   `json:"kind"`
	Source     SuggestionSource `json:"source,omitempty"`
	Timestamp  *time.Time       `json:"timestamp,omitempty"`
	TargetID   *string          `json:"target_id,omitempty"`
	Confidence int              `json:"confidence"`
	Note       string           `json:"note,omitempty"`
}

// Classification is the outcome of the anomaly pipeline for one punch.
type Classification struct {
	HasAnomaly  bool                   `json:"has_anomaly"`
	Kind        AnomalyKind            `json:"kind,omitempty"`
	Note        string                 `json:"note,omitempty"`
	Suggestions []CorrectionSuggestion `json:"suggestions,omitempty"`
}

// Metrics carries the computed payroll-relevant figures for one punch.
type Metrics struct {
	HoursWorked       *float64 `json:"hours_worked,omitempty"`
	LateMinutes       *int     `json:"late_minutes,omitempty"`
	EarlyLeaveMinutes *int     `json:"early_leave_minutes,omitempty"`
	OvertimeMinutes   *int     `json:"overtime_minutes,omitempty"`
}

// Session is a reconstructed IN to OUT pair.
type Session struct {
	In  *AttendanceRecord
	Out *AttendanceRecord
}

// OpenSession is an IN that never received a matching OUT.
type OpenSession struct {
	In        *AttendanceRecord
	HoursOpen float64
}

// DaySessions is the reconstructed view of one employee-day.
type DaySessions struct {
	Records      []AttendanceRecord
	Sessions     []Session
	OpenSessions []OpenSession
	BreakMinutes int
}

// PunchAttempt logs every ingestion attempt regardless of outcome.
type PunchAttempt struct {
	ID         string    `db:"id" json:"id"`
	TenantID   string    `db:"tenant_id" json:"tenant_id"`
	EmployeeID *string   `db:"employee_id" json:"employee_id,omitempty"`
	DeviceID   *string   `db:"device_id" json:"device_id,omitempty"`
	Timestamp  time.Time `db:"timestamp" json:"timestamp"`
	Type       string    `db:"type" json:"type"`
	Success    bool      `db:"success" json:"success"`
	FailCode   *string   `db:"fail_code" json:"fail_code,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
