package models

import "time"

// NotificationKind discriminates the per-condition dedup log tables.
type NotificationKind string

const (
	NotifyLate             NotificationKind = "LATE"
	NotifyAbsence          NotificationKind = "ABSENCE"
	NotifyAbsencePartial   NotificationKind = "ABSENCE_PARTIAL"
	NotifyAbsenceTechnical NotificationKind = "ABSENCE_TECHNICAL"
	NotifyMissingIn        NotificationKind = "MISSING_IN"
	NotifyMissingOut       NotificationKind = "MISSING_OUT"
	NotifyOvertimePending  NotificationKind = "OVERTIME_PENDING"
)

// NotificationLog guarantees at most one email per condition per day.
// Uniqueness tuple: (tenant_id, employee_id, session_date, kind, shift_start).
type NotificationLog struct {
	ID          string           `db:"id" json:"id"`
	TenantID    string           `db:"tenant_id" json:"tenant_id"`
	EmployeeID  string           `db:"employee_id" json:"employee_id"`
	SessionDate time.Time        `db:"session_date" json:"session_date"`
	Kind        NotificationKind `db:"kind" json:"kind"`
	ShiftStart  string           `db:"shift_start" json:"shift_start"`
	SentAt      time.Time        `db:"sent_at" json:"sent_at"`
}

// EmailTemplate is a tenant-managed template with {{key}} placeholders.
type EmailTemplate struct {
	ID       string           `db:"id" json:"id"`
	TenantID string           `db:"tenant_id" json:"tenant_id"`
	Kind     NotificationKind `db:"kind" json:"kind"`
	Subject  string           `db:"subject" json:"subject"`
	Body     string           `db:"body" json:"body"`
	IsActive bool             `db:"is_active" json:"is_active"`
}

// EmailConfig gates outbound notifications per tenant and per kind.
type EmailConfig struct {
	TenantID               string `db:"tenant_id" json:"tenant_id"`
	Enabled                bool   `db:"enabled" json:"enabled"`
	NotifyLate             bool   `db:"notify_late" json:"notify_late"`
	NotifyAbsence          bool   `db:"notify_absence" json:"notify_absence"`
	NotifyAbsencePartial   bool   `db:"notify_absence_partial" json:"notify_absence_partial"`
	NotifyAbsenceTechnical bool   `db:"notify_absence_technical" json:"notify_absence_technical"`
	NotifyMissingIn        bool   `db:"notify_missing_in" json:"notify_missing_in"`
	NotifyMissingOut       bool   `db:"notify_missing_out" json:"notify_missing_out"`
	NotifyOvertimePending  bool   `db:"notify_overtime_pending" json:"notify_overtime_pending"`
}

// KindEnabled resolves the per-kind toggle.
func (c EmailConfig) KindEnabled(kind NotificationKind) bool {
	if !c.Enabled {
		return false
	}
	switch kind {
	case NotifyLate:
		return c.NotifyLate
	case NotifyAbsence:
		return c.NotifyAbsence
	case NotifyAbsencePartial:
		return c.NotifyAbsencePartial
	case NotifyAbsenceTechnical:
		return c.NotifyAbsenceTechnical
	case NotifyMissingIn:
		return c.NotifyMissingIn
	case NotifyMissingOut:
		return c.NotifyMissingOut
	case NotifyOvertimePending:
		return c.NotifyOvertimePending
	default:
		return false
	}
}

// Mail is the outbound message contract handed to the mailer.
type Mail struct {
	To         string           `json:"to"`
	Subject    string           `json:"subject"`
	HTML       string           `json:"html"`
	Kind       NotificationKind `json:"kind"`
	EmployeeID *string          `json:"employee_id,omitempty"`
	ManagerID  *string          `json:"manager_id,omitempty"`
	TemplateID *string          `json:"template_id,omitempty"`
}
