package models

import "time"

// LeaveStatus values that suppress anomaly detection.
type LeaveStatus string

const (
	LeaveApproved        LeaveStatus = "APPROVED"
	LeaveManagerApproved LeaveStatus = "MANAGER_APPROVED"
	LeaveHRApproved      LeaveStatus = "HR_APPROVED"
	LeavePending         LeaveStatus = "PENDING"
	LeaveRejected        LeaveStatus = "REJECTED"
)

// Suppressing reports whether the leave status counts as an approved absence.
func (s LeaveStatus) Suppressing() bool {
	switch s {
	case LeaveApproved, LeaveManagerApproved, LeaveHRApproved:
		return true
	default:
		return false
	}
}

// LeaveType distinguishes on-site absence from remote and mission work.
type LeaveType string

const (
	LeaveTypeStandard LeaveType = "STANDARD"
	LeaveTypeRemote   LeaveType = "REMOTE"
	LeaveTypeMission  LeaveType = "MISSION"
)

// Leave is an approved absence interval owned by the leave subsystem.
type Leave struct {
	ID         string      `db:"id" json:"id"`
	TenantID   string      `db:"tenant_id" json:"tenant_id"`
	EmployeeID string      `db:"employee_id" json:"employee_id"`
	Type       LeaveType   `db:"type" json:"type"`
	Status     LeaveStatus `db:"status" json:"status"`
	StartDate  time.Time   `db:"start_date" json:"start_date"`
	EndDate    time.Time   `db:"end_date" json:"end_date"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

// Covers reports whether the leave interval includes the given date.
func (l Leave) Covers(date time.Time) bool {
	d := DateOnly(date)
	return !d.Before(DateOnly(l.StartDate)) && !d.After(DateOnly(l.EndDate))
}

// RecoveryDay is a compensatory rest day (APPROVED or PENDING both count).
type RecoveryDay struct {
	ID         string    `db:"id" json:"id"`
	TenantID   string    `db:"tenant_id" json:"tenant_id"`
	EmployeeID string    `db:"employee_id" json:"employee_id"`
	Date       time.Time `db:"date" json:"date"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Holiday is a tenant-specific public holiday.
type Holiday struct {
	ID       string    `db:"id" json:"id"`
	TenantID string    `db:"tenant_id" json:"tenant_id"`
	Date     time.Time `db:"date" json:"date"`
	Name     string    `db:"name" json:"name"`
}
