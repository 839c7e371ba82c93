package service

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/timegrid-hq/timegrid-api/internal/dto"
	"github.com/timegrid-hq/timegrid-api/internal/models"
	appErrors "github.com/timegrid-hq/timegrid-api/pkg/errors"
)

// approvalDelta is the timestamp change beyond which a correction needs a
// manager or HR decision.
const approvalDelta = 2 * time.Hour

type correctionRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*models.AttendanceRecord, error)
	Update(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	ListCorrected(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
}

// correctionNotifier routes correction outcomes: pending ones to managers,
// resolved ones to the employee.
type correctionNotifier interface {
	NotifyCorrectionPending(record models.AttendanceRecord)
	NotifyCorrectionResolved(record models.AttendanceRecord)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// CorrectionService governs manual punch corrections and their approval
// state machine.
type CorrectionService struct {
	records    correctionRepository
	classifier *AnomalyClassifier
	metrics    *MetricsCalculator
	notifier   correctionNotifier
	cache      cacheInvalidator
	logger     *zap.Logger
	now        func() time.Time
}

// NewCorrectionService builds the service. The cache may be nil.
func NewCorrectionService(records correctionRepository, classifier *AnomalyClassifier, metrics *MetricsCalculator, notifier correctionNotifier, cache cacheInvalidator, logger *zap.Logger) *CorrectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CorrectionService{
		records:    records,
		classifier: classifier,
		metrics:    metrics,
		notifier:   notifier,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// invalidateDashboards drops cached anomaly aggregates for the tenant after a
// correction changes the underlying records.
func (s *CorrectionService) invalidateDashboards(ctx context.Context, tenantID string) {
	if s.cache == nil {
		return
	}
	pattern := "dashboard:anomalies:" + tenantID + ":*"
	if err := s.cache.Invalidate(ctx, pattern); err != nil {
		s.logger.Warn("dashboard cache invalidation failed",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
	}
}

// Correct moves a punch to a new timestamp, re-running classification and
// metrics against it. Large moves and corrections of ABSENCE or
// INSUFFICIENT_REST records go to pending approval unless forced through.
func (s *CorrectionService) Correct(ctx context.Context, tenantID, recordID, actorID string, req dto.CorrectPunchRequest) (*models.AttendanceRecord, error) {
	record, err := s.records.FindByID(ctx, tenantID, recordID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "load record")
	}
	if record == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
	}

	needsApproval := s.requiresApproval(record, req.Timestamp) && !req.ForceApproval

	// The record's own stored row is excluded from re-classification so the
	// moved punch cannot pair or collide with its stale timestamp.
	snap, err := s.classifier.Snapshot(ctx, tenantID, record.EmployeeID, req.Timestamp)
	if err != nil {
		return nil, err
	}
	classification, err := s.classifier.ClassifyWith(ctx, snap, tenantID, record.EmployeeID, req.Timestamp, record.Type, record.Method, record.ID)
	if err != nil {
		return nil, err
	}
	metrics, err := s.metrics.ComputeWith(ctx, snap, tenantID, record.EmployeeID, req.Timestamp, record.Type, record.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	record.Timestamp = req.Timestamp
	record.IsCorrected = true
	record.CorrectedBy = &actorID
	record.CorrectedAt = &now
	record.CorrectionNote = &req.Note
	record.HasAnomaly = classification.HasAnomaly
	record.AnomalyType = nil
	record.AnomalyNote = nil
	if classification.Kind != "" {
		kind := classification.Kind
		record.AnomalyType = &kind
	}
	if classification.Note != "" {
		note := classification.Note
		record.AnomalyNote = &note
	}
	record.HoursWorked = metrics.HoursWorked
	record.LateMinutes = metrics.LateMinutes
	record.EarlyLeaveMinutes = metrics.EarlyLeaveMinutes
	record.OvertimeMinutes = metrics.OvertimeMinutes

	record.NeedsApproval = needsApproval
	if needsApproval {
		status := models.ApprovalPending
		record.ApprovalStatus = &status
	} else {
		record.ApprovalStatus = nil
		record.ApprovedBy = nil
		record.ApprovedAt = nil
	}

	updated, err := s.records.Update(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "persist correction")
	}

	s.invalidateDashboards(ctx, tenantID)

	if s.notifier != nil {
		if needsApproval {
			s.notifier.NotifyCorrectionPending(*updated)
		} else {
			s.notifier.NotifyCorrectionResolved(*updated)
		}
	}

	return updated, nil
}

// requiresApproval applies the approval policy: a delta above two hours, or
// an original anomaly of ABSENCE or INSUFFICIENT_REST.
func (s *CorrectionService) requiresApproval(record *models.AttendanceRecord, newTS time.Time) bool {
	delta := newTS.Sub(record.Timestamp)
	if delta < 0 {
		delta = -delta
	}
	if delta > approvalDelta {
		return true
	}
	if record.AnomalyType != nil {
		switch *record.AnomalyType {
		case models.AnomalyAbsence, models.AnomalyInsufficientRest:
			return true
		}
	}
	return false
}

// Resolve approves or rejects a pending correction. The transition is
// terminal: an already decided correction cannot be re-decided.
func (s *CorrectionService) Resolve(ctx context.Context, tenantID, recordID, actorID string, req dto.ApproveCorrectionRequest) (*models.AttendanceRecord, error) {
	record, err := s.records.FindByID(ctx, tenantID, recordID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "load record")
	}
	if record == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
	}
	if !record.NeedsApproval || record.ApprovalStatus == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "record has no pending correction")
	}
	if *record.ApprovalStatus != models.ApprovalPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "correction already decided")
	}

	now := s.now()
	status := models.ApprovalApproved
	if !req.Approve {
		status = models.ApprovalRejected
	}
	record.ApprovalStatus = &status
	record.ApprovedBy = &actorID
	record.ApprovedAt = &now
	if req.Note != "" {
		record.CorrectionNote = &req.Note
	}

	updated, err := s.records.Update(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "persist approval")
	}

	s.invalidateDashboards(ctx, tenantID)

	if s.notifier != nil {
		s.notifier.NotifyCorrectionResolved(*updated)
	}

	return updated, nil
}

// BulkCorrect applies several corrections, isolating failures per record.
func (s *CorrectionService) BulkCorrect(ctx context.Context, tenantID, actorID string, req dto.BulkCorrectRequest) []dto.BulkCorrectResult {
	results := make([]dto.BulkCorrectResult, 0, len(req.Corrections))
	for _, item := range req.Corrections {
		_, err := s.Correct(ctx, tenantID, item.RecordID, actorID, dto.CorrectPunchRequest{
			Timestamp: item.Timestamp,
			Note:      item.Note,
		})
		result := dto.BulkCorrectResult{RecordID: item.RecordID, Success: err == nil}
		if err != nil {
			result.Error = appErrors.FromError(err).Message
			s.logger.Warn("bulk correction item failed",
				zap.String("record_id", item.RecordID),
				zap.Error(err))
		}
		results = append(results, result)
	}
	return results
}

// History lists corrected records for audit review.
func (s *CorrectionService) History(ctx context.Context, tenantID string, query dto.ListAttendanceQuery) ([]models.AttendanceRecord, int, error) {
	filter := models.AttendanceFilter{
		TenantID:   tenantID,
		EmployeeID: query.EmployeeID,
		Page:       query.Page,
		PageSize:   query.PageSize,
		SortBy:     query.SortBy,
		SortOrder:  query.SortOrder,
	}
	if query.DateFrom != "" {
		if from, err := time.Parse("2006-01-02", query.DateFrom); err == nil {
			filter.DateFrom = &from
		}
	}
	if query.DateTo != "" {
		if to, err := time.Parse("2006-01-02", query.DateTo); err == nil {
			filter.DateTo = &to
		}
	}
	return s.records.ListCorrected(ctx, filter)
}
