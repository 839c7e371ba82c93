package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

// HolidayRepository reads the tenant holiday calendar.
type HolidayRepository struct {
	db *sqlx.DB
}

// NewHolidayRepository constructs the repository.
func NewHolidayRepository(db *sqlx.DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

// FindByDate returns the holiday on a calendar date, nil when none exists.
func (r *HolidayRepository) FindByDate(ctx context.Context, tenantID string, date time.Time) (*models.Holiday, error) {
	query := `SELECT id, tenant_id, date, name FROM holidays WHERE tenant_id = $1 AND date = $2`
	var holiday models.Holiday
	if err := r.db.GetContext(ctx, &holiday, query, tenantID, models.DateOnly(date)); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find holiday: %w", err)
	}
	return &holiday, nil
}

// ListBetween returns holidays within an inclusive date range.
func (r *HolidayRepository) ListBetween(ctx context.Context, tenantID string, from, to time.Time) ([]models.Holiday, error) {
	query := `SELECT id, tenant_id, date, name FROM holidays
WHERE tenant_id = $1 AND date >= $2 AND date <= $3 ORDER BY date ASC`
	var rows []models.Holiday
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, models.DateOnly(from), models.DateOnly(to)); err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	return rows, nil
}
