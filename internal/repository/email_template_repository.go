package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

// EmailTemplateRepository reads tenant notification templates and toggles.
type EmailTemplateRepository struct {
	db *sqlx.DB
}

// NewEmailTemplateRepository constructs the repository.
func NewEmailTemplateRepository(db *sqlx.DB) *EmailTemplateRepository {
	return &EmailTemplateRepository{db: db}
}

// FindActive returns the active template for one notification kind, nil when
// the tenant has none.
func (r *EmailTemplateRepository) FindActive(ctx context.Context, tenantID string, kind models.NotificationKind) (*models.EmailTemplate, error) {
	query := `SELECT id, tenant_id, kind, subject, body, is_active
FROM email_templates
WHERE tenant_id = $1 AND kind = $2 AND is_active = TRUE
LIMIT 1`
	var template models.EmailTemplate
	if err := r.db.GetContext(ctx, &template, query, tenantID, kind); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find email template: %w", err)
	}
	return &template, nil
}

// EmailConfig returns the tenant's notification toggles. A missing row means
// notifications are disabled.
func (r *EmailTemplateRepository) EmailConfig(ctx context.Context, tenantID string) (*models.EmailConfig, error) {
	query := `SELECT tenant_id, enabled, notify_late, notify_absence, notify_absence_partial,
notify_absence_technical, notify_missing_in, notify_missing_out, notify_overtime_pending
FROM email_configs WHERE tenant_id = $1`
	var config models.EmailConfig
	if err := r.db.GetContext(ctx, &config, query, tenantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find email config: %w", err)
	}
	return &config, nil
}
