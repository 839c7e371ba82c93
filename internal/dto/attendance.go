package dto

import "time"

// CreatePunchRequest ingests one punch event, manual or device-originated.
type CreatePunchRequest struct {
	EmployeeID string    `json:"employeeId" validate:"required"`
	DeviceID   *string   `json:"deviceId"`
	SiteID     *string   `json:"siteId"`
	Timestamp  time.Time `json:"timestamp" validate:"required"`
	Type       string    `json:"type" validate:"required,punchtype"`
	Method     string    `json:"method" validate:"required,punchmethod"`
	Latitude   *float64  `json:"latitude" validate:"omitempty,latitude"`
	Longitude  *float64  `json:"longitude" validate:"omitempty,longitude"`
}

// WebhookPunchRequest is the raw payload pushed by a punch terminal.
type WebhookPunchRequest struct {
	SerialNumber string    `json:"serialNumber" validate:"required"`
	Matricule    string    `json:"matricule" validate:"required"`
	Timestamp    time.Time `json:"timestamp" validate:"required"`
	Type         string    `json:"type" validate:"required,punchtype"`
}

// ListAttendanceQuery filters the attendance listing.
type ListAttendanceQuery struct {
	EmployeeID  string `form:"employeeId"`
	SiteID      string `form:"siteId"`
	Type        string `form:"type"`
	AnomalyType string `form:"anomalyType"`
	HasAnomaly  *bool  `form:"hasAnomaly"`
	DateFrom    string `form:"dateFrom"`
	DateTo      string `form:"dateTo"`
	Page        int    `form:"page"`
	PageSize    int    `form:"pageSize"`
	SortBy      string `form:"sortBy"`
	SortOrder   string `form:"sortOrder"`
}

// CorrectPunchRequest moves a punch to a new timestamp.
type CorrectPunchRequest struct {
	Timestamp     time.Time `json:"timestamp" validate:"required"`
	Note          string    `json:"note" validate:"required"`
	ForceApproval bool      `json:"forceApproval"`
}

// BulkCorrectRequest corrects several punches in one call.
type BulkCorrectRequest struct {
	Corrections []BulkCorrectionItem `json:"corrections" validate:"required,min=1,dive"`
}

// BulkCorrectionItem is one entry of a bulk correction.
type BulkCorrectionItem struct {
	RecordID  string    `json:"recordId" validate:"required"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
	Note      string    `json:"note" validate:"required"`
}

// BulkCorrectResult reports per-record outcomes.
type BulkCorrectResult struct {
	RecordID string `json:"recordId"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// ApproveCorrectionRequest resolves a pending correction.
type ApproveCorrectionRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}
