package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/timegrid-hq/timegrid-api/internal/dto"
	"github.com/timegrid-hq/timegrid-api/internal/models"
	appErrors "github.com/timegrid-hq/timegrid-api/pkg/errors"
)

type policyRepository interface {
	PolicyFor(ctx context.Context, tenantID string) (models.TenantPolicy, error)
	Update(ctx context.Context, policy models.TenantPolicy) (models.TenantPolicy, error)
}

// SettingsService reads and updates the tenant attendance policy. Changes
// apply to the next punch; persisted records are never recomputed.
type SettingsService struct {
	policies policyRepository
	validate *validator.Validate
	logger   *zap.Logger
}

// NewSettingsService builds the service.
func NewSettingsService(policies policyRepository, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{policies: policies, validate: validate, logger: logger}
}

// Get returns the effective policy, defaults included.
func (s *SettingsService) Get(ctx context.Context, tenantID string) (models.TenantPolicy, error) {
	return s.policies.PolicyFor(ctx, tenantID)
}

// Update merges the request onto the current policy and persists it.
func (s *SettingsService) Update(ctx context.Context, tenantID string, req dto.UpdateSettingsRequest) (models.TenantPolicy, error) {
	if err := s.validate.Struct(req); err != nil {
		return models.TenantPolicy{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}

	policy, err := s.policies.PolicyFor(ctx, tenantID)
	if err != nil {
		return models.TenantPolicy{}, err
	}
	policy.TenantID = tenantID
	applySettings(&policy, req)

	updated, err := s.policies.Update(ctx, policy)
	if err != nil {
		return models.TenantPolicy{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update settings")
	}
	s.logger.Info("tenant settings updated", zap.String("tenant_id", tenantID))
	return updated, nil
}

func applySettings(policy *models.TenantPolicy, req dto.UpdateSettingsRequest) {
	if req.LateToleranceEntry != nil {
		policy.LateToleranceEntry = *req.LateToleranceEntry
	}
	if req.EarlyToleranceExit != nil {
		policy.EarlyToleranceExit = *req.EarlyToleranceExit
	}
	if req.AbsencePartialThresholdHrs != nil {
		policy.AbsencePartialThresholdHrs = *req.AbsencePartialThresholdHrs
	}
	if req.OvertimeRoundingMinutes != nil {
		policy.OvertimeRoundingMinutes = *req.OvertimeRoundingMinutes
	}
	if req.OvertimeMinimumThresholdMin != nil {
		policy.OvertimeMinimumThresholdMin = *req.OvertimeMinimumThresholdMin
	}
	if req.BreakDurationMinutes != nil {
		policy.BreakDurationMinutes = *req.BreakDurationMinutes
	}
	if req.RequireBreakPunch != nil {
		policy.RequireBreakPunch = *req.RequireBreakPunch
	}
	if req.RequireScheduleForPunch != nil {
		policy.RequireScheduleForPunch = *req.RequireScheduleForPunch
	}
	if len(req.WorkingDays) > 0 {
		policy.WorkingDays = req.WorkingDays
	}
	if req.DoubleInDetectionWindowHrs != nil {
		policy.DoubleInDetectionWindowHrs = *req.DoubleInDetectionWindowHrs
	}
	if req.OrphanInThresholdHrs != nil {
		policy.OrphanInThresholdHrs = *req.OrphanInThresholdHrs
	}
	if req.DoublePunchToleranceMin != nil {
		policy.DoublePunchToleranceMin = *req.DoublePunchToleranceMin
	}
	if req.PatternAlertThreshold != nil {
		policy.PatternAlertThreshold = *req.PatternAlertThreshold
	}
	if req.MissingOutWindowHrs != nil {
		policy.MissingOutWindowHrs = *req.MissingOutWindowHrs
	}
	if req.MinimumRestHours != nil {
		policy.MinimumRestHours = *req.MinimumRestHours
	}
	if req.MinimumRestHoursNightShift != nil {
		policy.MinimumRestHoursNightShift = *req.MinimumRestHoursNightShift
	}
	if req.AbsenceDetectionBufferMin != nil {
		policy.AbsenceDetectionBufferMin = *req.AbsenceDetectionBufferMin
	}
	if req.LateNotificationThresholdMin != nil {
		policy.LateNotificationThresholdMin = *req.LateNotificationThresholdMin
	}
	if req.HolidayOvertimeEnabled != nil {
		policy.HolidayOvertimeEnabled = *req.HolidayOvertimeEnabled
	}
	if req.HolidayOvertimeAsNormalHours != nil {
		policy.HolidayOvertimeAsNormalHours = *req.HolidayOvertimeAsNormalHours
	}
	if req.HolidayOvertimeRate != nil {
		policy.HolidayOvertimeRate = *req.HolidayOvertimeRate
	}
}
