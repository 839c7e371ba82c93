package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

const employeeColumns = `id, tenant_id, matricule, first_name, last_name, email, site_id,
manager_id, current_shift_id, is_eligible_for_overtime, is_active, created_at, updated_at`

// EmployeeRepository reads the workforce directory.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository constructs the repository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// FindByID returns one employee with their standing shift attached.
func (r *EmployeeRepository) FindByID(ctx context.Context, tenantID, employeeID string) (*models.Employee, error) {
	query := fmt.Sprintf(`SELECT %s FROM employees WHERE tenant_id = $1 AND id = $2`, employeeColumns)
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, query, tenantID, employeeID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find employee: %w", err)
	}
	if err := r.attachShift(ctx, &employee); err != nil {
		return nil, err
	}
	return &employee, nil
}

// FindByMatricule resolves an employee from their badge number.
func (r *EmployeeRepository) FindByMatricule(ctx context.Context, tenantID, matricule string) (*models.Employee, error) {
	query := fmt.Sprintf(`SELECT %s FROM employees WHERE tenant_id = $1 AND matricule = $2`, employeeColumns)
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, query, tenantID, matricule); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find employee by matricule: %w", err)
	}
	if err := r.attachShift(ctx, &employee); err != nil {
		return nil, err
	}
	return &employee, nil
}

// ListActive returns all active employees of a tenant.
func (r *EmployeeRepository) ListActive(ctx context.Context, tenantID string) ([]models.Employee, error) {
	query := fmt.Sprintf(`SELECT %s FROM employees WHERE tenant_id = $1 AND is_active = TRUE ORDER BY last_name, first_name`, employeeColumns)
	var rows []models.Employee
	if err := r.db.SelectContext(ctx, &rows, query, tenantID); err != nil {
		return nil, fmt.Errorf("list active employees: %w", err)
	}
	return rows, nil
}

func (r *EmployeeRepository) attachShift(ctx context.Context, employee *models.Employee) error {
	if employee.CurrentShiftID == nil || *employee.CurrentShiftID == "" {
		return nil
	}
	query := fmt.Sprintf(`SELECT %s FROM shifts WHERE id = $1`, shiftColumns)
	var shift models.Shift
	if err := r.db.GetContext(ctx, &shift, query, *employee.CurrentShiftID); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("load current shift: %w", err)
	}
	employee.CurrentShift = &shift
	return nil
}
