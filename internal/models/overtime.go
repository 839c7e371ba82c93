package models

import "time"

// OvertimeType classifies a detected overtime block.
type OvertimeType string

const (
	OvertimeStandard OvertimeType = "STANDARD"
	OvertimeNight    OvertimeType = "NIGHT"
	OvertimeHoliday  OvertimeType = "HOLIDAY"
)

// OvertimeStatus tracks the approval lifecycle of a detected overtime block.
type OvertimeStatus string

const (
	OvertimePending  OvertimeStatus = "PENDING"
	OvertimeApproved OvertimeStatus = "APPROVED"
	OvertimeRejected OvertimeStatus = "REJECTED"
)

// Overtime is a payroll-relevant overtime block created by the detection job.
type Overtime struct {
	ID         string         `db:"id" json:"id"`
	TenantID   string         `db:"tenant_id" json:"tenant_id"`
	EmployeeID string         `db:"employee_id" json:"employee_id"`
	Date       time.Time      `db:"date" json:"date"`
	Minutes    int            `db:"minutes" json:"minutes"`
	Type       OvertimeType   `db:"type" json:"type"`
	Status     OvertimeStatus `db:"status" json:"status"`
	SourceID   *string        `db:"source_id" json:"source_id,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}
