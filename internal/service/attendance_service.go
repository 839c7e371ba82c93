package service

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/timegrid-hq/timegrid-api/internal/dto"
	"github.com/timegrid-hq/timegrid-api/internal/models"
	appErrors "github.com/timegrid-hq/timegrid-api/pkg/errors"
)

type attendanceRepository interface {
	Create(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	Delete(ctx context.Context, tenantID, id string) error
}

type attemptLogger interface {
	Log(ctx context.Context, attempt models.PunchAttempt) error
}

type deviceDirectory interface {
	FindBySerial(ctx context.Context, serialNumber string) (*models.Device, error)
}

type employeeDirectory interface {
	FindByID(ctx context.Context, tenantID, employeeID string) (*models.Employee, error)
	FindByMatricule(ctx context.Context, tenantID, matricule string) (*models.Employee, error)
}

// anomalyNotifier receives persisted anomalous records; delivery is
// fire-and-forget and must never fail ingestion.
type anomalyNotifier interface {
	NotifyAnomaly(record models.AttendanceRecord)
}

// AttendanceService orchestrates punch ingestion through the full
// resolve, reconstruct, classify, compute pipeline.
type AttendanceService struct {
	records    attendanceRepository
	attempts   attemptLogger
	devices    deviceDirectory
	employees  employeeDirectory
	leaves     leaveRepository
	holidays   holidayRepository
	classifier *AnomalyClassifier
	metrics    *MetricsCalculator
	notifier   anomalyNotifier
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewAttendanceService builds the service and registers custom validations.
func NewAttendanceService(
	records attendanceRepository,
	attempts attemptLogger,
	devices deviceDirectory,
	employees employeeDirectory,
	leaves leaveRepository,
	holidays holidayRepository,
	classifier *AnomalyClassifier,
	metrics *MetricsCalculator,
	notifier anomalyNotifier,
	logger *zap.Logger,
) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := validator.New()
	_ = v.RegisterValidation("punchtype", func(fl validator.FieldLevel) bool {
		return models.PunchType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("punchmethod", func(fl validator.FieldLevel) bool {
		switch models.PunchMethod(fl.Field().String()) {
		case models.MethodDevice, models.MethodMobileGPS, models.MethodManual, models.MethodWeb:
			return true
		default:
			return false
		}
	})
	return &AttendanceService{
		records:    records,
		attempts:   attempts,
		devices:    devices,
		employees:  employees,
		leaves:     leaves,
		holidays:   holidays,
		classifier: classifier,
		metrics:    metrics,
		notifier:   notifier,
		validate:   v,
		logger:     logger,
	}
}

// CreatePunch ingests one punch. Every attempt is logged to the attempt side
// channel whether or not ingestion succeeds.
func (s *AttendanceService) CreatePunch(ctx context.Context, tenantID string, req dto.CreatePunchRequest) (*models.AttendanceRecord, error) {
	record, err := s.ingest(ctx, tenantID, req)
	s.logAttempt(ctx, tenantID, req, err)
	return record, err
}

// HandleWebhook maps a terminal payload onto an employee and ingests it.
func (s *AttendanceService) HandleWebhook(ctx context.Context, req dto.WebhookPunchRequest) (*models.AttendanceRecord, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid webhook payload")
	}

	device, err := s.devices.FindBySerial(ctx, req.SerialNumber)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "lookup device")
	}
	if device == nil || !device.IsActive {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown or inactive device")
	}

	emp, err := s.employees.FindByMatricule(ctx, device.TenantID, req.Matricule)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "lookup employee")
	}
	if emp == nil {
		attempt := dto.CreatePunchRequest{Timestamp: req.Timestamp, Type: req.Type, DeviceID: &device.ID}
		s.logAttempt(ctx, device.TenantID, attempt, appErrors.ErrNotFound)
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown matricule for device tenant")
	}

	return s.CreatePunch(ctx, device.TenantID, dto.CreatePunchRequest{
		EmployeeID: emp.ID,
		DeviceID:   &device.ID,
		SiteID:     device.SiteID,
		Timestamp:  req.Timestamp,
		Type:       req.Type,
		Method:     string(models.MethodDevice),
	})
}

func (s *AttendanceService) ingest(ctx context.Context, tenantID string, req dto.CreatePunchRequest) (*models.AttendanceRecord, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid punch payload")
	}

	punchType := models.PunchType(req.Type)
	method := models.PunchMethod(req.Method)

	emp, err := s.employees.FindByID(ctx, tenantID, req.EmployeeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "lookup employee")
	}
	if emp == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
	}

	// One snapshot per ingestion: the gate, the classifier and the
	// calculator all read the same resolved schedule and policy.
	snap, err := s.classifier.Snapshot(ctx, tenantID, req.EmployeeID, req.Timestamp)
	if err != nil {
		return nil, err
	}

	if punchType.IsBreak() && !snap.Policy.RequireBreakPunch {
		return nil, appErrors.Clone(appErrors.ErrValidation, "break punches are disabled for this tenant")
	}

	if err := s.validateScheduleOrShift(ctx, tenantID, req.EmployeeID, req.Timestamp, snap); err != nil {
		return nil, err
	}

	classification, err := s.classifier.ClassifyWith(ctx, snap, tenantID, req.EmployeeID, req.Timestamp, punchType, method, "")
	if err != nil {
		return nil, err
	}

	metrics, err := s.metrics.ComputeWith(ctx, snap, tenantID, req.EmployeeID, req.Timestamp, punchType, "")
	if err != nil {
		return nil, err
	}

	record := &models.AttendanceRecord{
		ID:                uuid.NewString(),
		TenantID:          tenantID,
		EmployeeID:        req.EmployeeID,
		SiteID:            req.SiteID,
		DeviceID:          req.DeviceID,
		Timestamp:         req.Timestamp,
		Type:              punchType,
		Method:            method,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		HasAnomaly:        classification.HasAnomaly,
		HoursWorked:       metrics.HoursWorked,
		LateMinutes:       metrics.LateMinutes,
		EarlyLeaveMinutes: metrics.EarlyLeaveMinutes,
		OvertimeMinutes:   metrics.OvertimeMinutes,
	}
	if classification.Kind != "" {
		kind := classification.Kind
		record.AnomalyType = &kind
	}
	if classification.Note != "" {
		note := classification.Note
		record.AnomalyNote = &note
	}

	created, err := s.records.Create(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "persist punch")
	}

	if created.HasAnomaly && s.notifier != nil {
		s.notifier.NotifyAnomaly(*created)
	}

	return created, nil
}

// validateScheduleOrShift is the policy gate that can reject a punch before
// classification runs. When the tenant does not mandate schedules the punch
// is accepted and left to the classifier to flag.
func (s *AttendanceService) validateScheduleOrShift(ctx context.Context, tenantID, employeeID string, ts time.Time, snap *PunchSnapshot) error {
	if snap.Resolved != nil {
		return nil
	}
	if !snap.Policy.RequireScheduleForPunch {
		return nil
	}

	leave, err := s.leaves.FindCovering(ctx, tenantID, employeeID, ts)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "lookup leave")
	}
	covered := leave != nil && leave.Status.Suppressing()
	if !covered {
		hasRecovery, err := s.leaves.HasRecoveryDay(ctx, tenantID, employeeID, models.DateOnly(ts))
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "lookup recovery day")
		}
		covered = hasRecovery
	}
	if covered {
		return nil
	}

	holiday, err := s.holidays.FindByDate(ctx, tenantID, models.DateOnly(ts))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "lookup holiday")
	}
	if holiday != nil {
		return appErrors.Clone(appErrors.ErrValidation, "punch on a holiday without a published schedule")
	}
	if !snap.Policy.IsWorkingDay(ts) {
		return appErrors.Clone(appErrors.ErrValidation, "punch on a non-working day without leave or recovery")
	}
	// Working day with no schedule: accepted, classifier records the gap.
	return nil
}

func (s *AttendanceService) logAttempt(ctx context.Context, tenantID string, req dto.CreatePunchRequest, ingestErr error) {
	attempt := models.PunchAttempt{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Timestamp: req.Timestamp,
		Type:      req.Type,
		Success:   ingestErr == nil,
		DeviceID:  req.DeviceID,
	}
	if req.EmployeeID != "" {
		id := req.EmployeeID
		attempt.EmployeeID = &id
	}
	if ingestErr != nil {
		code := appErrors.FromError(ingestErr).Code
		attempt.FailCode = &code
	}
	if err := s.attempts.Log(ctx, attempt); err != nil {
		s.logger.Warn("punch attempt log failed", zap.Error(err))
	}
}

// List returns attendance records scoped by the filter.
func (s *AttendanceService) List(ctx context.Context, tenantID string, query dto.ListAttendanceQuery) ([]models.AttendanceRecord, int, error) {
	filter := models.AttendanceFilter{
		TenantID:   tenantID,
		EmployeeID: query.EmployeeID,
		SiteID:     query.SiteID,
		Page:       query.Page,
		PageSize:   query.PageSize,
		SortBy:     query.SortBy,
		SortOrder:  query.SortOrder,
		HasAnomaly: query.HasAnomaly,
	}
	if query.Type != "" {
		t := models.PunchType(query.Type)
		if !t.Valid() {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, "invalid punch type filter")
		}
		filter.Type = &t
	}
	if query.AnomalyType != "" {
		k := models.AnomalyKind(query.AnomalyType)
		filter.AnomalyType = &k
	}
	if query.DateFrom != "" {
		from, err := time.Parse("2006-01-02", query.DateFrom)
		if err != nil {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, "invalid dateFrom")
		}
		filter.DateFrom = &from
	}
	if query.DateTo != "" {
		to, err := time.Parse("2006-01-02", query.DateTo)
		if err != nil {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, "invalid dateTo")
		}
		filter.DateTo = &to
	}
	return s.records.List(ctx, filter)
}

// Get returns one record in tenant scope.
func (s *AttendanceService) Get(ctx context.Context, tenantID, id string) (*models.AttendanceRecord, error) {
	record, err := s.records.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "load record")
	}
	if record == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
	}
	return record, nil
}

// Delete removes a record. Only MANUAL punches may be deleted, and only by
// callers the handler layer has already permission-checked.
func (s *AttendanceService) Delete(ctx context.Context, tenantID, id string) error {
	record, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if record.Method != models.MethodManual {
		return appErrors.Clone(appErrors.ErrForbidden, "only manual punches can be deleted")
	}
	if err := s.records.Delete(ctx, tenantID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "delete record")
	}
	return nil
}
