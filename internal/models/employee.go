package models

import "time"

// Tenant is one customer organisation.
type Tenant struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Timezone  string    `db:"timezone" json:"timezone"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Employee is a workforce member whose punches the engine reconciles.
type Employee struct {
	ID                    string    `db:"id" json:"id"`
	TenantID              string    `db:"tenant_id" json:"tenant_id"`
	Matricule             string    `db:"matricule" json:"matricule"`
	FirstName             string    `db:"first_name" json:"first_name"`
	LastName              string    `db:"last_name" json:"last_name"`
	Email                 *string   `db:"email" json:"email,omitempty"`
	SiteID                *string   `db:"site_id" json:"site_id,omitempty"`
	ManagerID             *string   `db:"manager_id" json:"manager_id,omitempty"`
	CurrentShiftID        *string   `db:"current_shift_id" json:"current_shift_id,omitempty"`
	IsEligibleForOvertime bool      `db:"is_eligible_for_overtime" json:"is_eligible_for_overtime"`
	IsActive              bool      `db:"is_active" json:"is_active"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`

	CurrentShift *Shift `db:"-" json:"current_shift,omitempty"`
}

// FullName joins first and last name for notification templates.
func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// Device is a physical punch terminal.
type Device struct {
	ID           string    `db:"id" json:"id"`
	TenantID     string    `db:"tenant_id" json:"tenant_id"`
	SerialNumber string    `db:"serial_number" json:"serial_number"`
	SiteID       *string   `db:"site_id" json:"site_id,omitempty"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
