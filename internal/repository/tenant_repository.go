package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

// TenantRepository reads tenant organisations.
type TenantRepository struct {
	db *sqlx.DB
}

// NewTenantRepository constructs the repository.
func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// ListActive returns all active tenants, the sweep iteration set.
func (r *TenantRepository) ListActive(ctx context.Context) ([]models.Tenant, error) {
	query := `SELECT id, name, timezone, is_active, created_at, updated_at
FROM tenants WHERE is_active = TRUE ORDER BY name ASC`
	var rows []models.Tenant
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list active tenants: %w", err)
	}
	return rows, nil
}

// FindByID returns one tenant.
func (r *TenantRepository) FindByID(ctx context.Context, id string) (*models.Tenant, error) {
	query := `SELECT id, name, timezone, is_active, created_at, updated_at FROM tenants WHERE id = $1`
	var tenant models.Tenant
	if err := r.db.GetContext(ctx, &tenant, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find tenant: %w", err)
	}
	return &tenant, nil
}
