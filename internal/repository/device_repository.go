package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

// DeviceRepository reads punch terminal registrations.
type DeviceRepository struct {
	db *sqlx.DB
}

// NewDeviceRepository constructs the repository.
func NewDeviceRepository(db *sqlx.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// FindBySerial resolves an active device from its serial number. Serials are
// globally unique across tenants.
func (r *DeviceRepository) FindBySerial(ctx context.Context, serialNumber string) (*models.Device, error) {
	query := `SELECT id, tenant_id, serial_number, site_id, is_active, created_at
FROM devices WHERE serial_number = $1 AND is_active = TRUE`
	var device models.Device
	if err := r.db.GetContext(ctx, &device, query, serialNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find device: %w", err)
	}
	return &device, nil
}
