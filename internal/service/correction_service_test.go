package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timegrid-hq/timegrid-api/internal/dto"
	"github.com/timegrid-hq/timegrid-api/internal/models"
	appErrors "github.com/timegrid-hq/timegrid-api/pkg/errors"
)

type stubCorrectionRepo struct {
	records   map[string]*models.AttendanceRecord
	corrected []models.AttendanceRecord
}

func (s *stubCorrectionRepo) FindByID(_ context.Context, _, id string) (*models.AttendanceRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

func (s *stubCorrectionRepo) Update(_ context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	clone := *record
	s.records[record.ID] = &clone
	out := clone
	return &out, nil
}

func (s *stubCorrectionRepo) ListCorrected(_ context.Context, _ models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	return s.corrected, len(s.corrected), nil
}

type stubCorrectionNotifier struct {
	pending  []models.AttendanceRecord
	resolved []models.AttendanceRecord
}

func (s *stubCorrectionNotifier) NotifyCorrectionPending(record models.AttendanceRecord) {
	s.pending = append(s.pending, record)
}

func (s *stubCorrectionNotifier) NotifyCorrectionResolved(record models.AttendanceRecord) {
	s.resolved = append(s.resolved, record)
}

type stubCacheInvalidator struct {
	patterns []string
}

func (s *stubCacheInvalidator) Invalidate(_ context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	return nil
}

type correctionFixture struct {
	*classifierFixture
	repo     *stubCorrectionRepo
	notifier *stubCorrectionNotifier
	cache    *stubCacheInvalidator
	svc      *CorrectionService
}

func newCorrectionFixture(now time.Time) *correctionFixture {
	base := newClassifierFixture(now)
	base.employees.employee = &models.Employee{ID: "emp-1", IsEligibleForOvertime: true}
	calc := NewMetricsCalculator(base.employees, base.holidays, base.policies, base.resolver, base.sessions, zap.NewNop())

	f := &correctionFixture{
		classifierFixture: base,
		repo:              &stubCorrectionRepo{records: map[string]*models.AttendanceRecord{}},
		notifier:          &stubCorrectionNotifier{},
		cache:             &stubCacheInvalidator{},
	}
	f.svc = NewCorrectionService(f.repo, base.classifier, calc, f.notifier, f.cache, zap.NewNop())
	f.svc.now = func() time.Time { return now }
	return f
}

func lateRecord() *models.AttendanceRecord {
	kind := models.AnomalyLate
	return &models.AttendanceRecord{
		ID:          "rec-1",
		TenantID:    "tenant-1",
		EmployeeID:  "emp-1",
		Timestamp:   monday.Add(9*time.Hour + 30*time.Minute),
		Type:        models.PunchIn,
		Method:      models.MethodDevice,
		HasAnomaly:  true,
		AnomalyType: &kind,
	}
}

func TestCorrectSmallDeltaAutoApplied(t *testing.T) {
	f := newCorrectionFixture(monday.Add(10 * time.Hour))
	f.publish(monday, dayShift())
	f.repo.records["rec-1"] = lateRecord()

	updated, err := f.svc.Correct(context.Background(), "tenant-1", "rec-1", "actor-1", dto.CorrectPunchRequest{
		Timestamp: monday.Add(9*time.Hour + 5*time.Minute),
		Note:      "badge reader lag",
	})
	require.NoError(t, err)
	assert.True(t, updated.IsCorrected)
	assert.False(t, updated.NeedsApproval)
	assert.False(t, updated.HasAnomaly)
	assert.Nil(t, updated.AnomalyType)
	require.NotNil(t, updated.CorrectedBy)
	assert.Equal(t, "actor-1", *updated.CorrectedBy)
	assert.Len(t, f.notifier.resolved, 1)
	assert.Empty(t, f.notifier.pending)
	require.Len(t, f.cache.patterns, 1)
	assert.Equal(t, "dashboard:anomalies:tenant-1:*", f.cache.patterns[0])
}

func TestCorrectIgnoresRecordAtOldTimestamp(t *testing.T) {
	f := newCorrectionFixture(monday.Add(10 * time.Hour))
	f.publish(monday, dayShift())
	record := &models.AttendanceRecord{
		ID:         "rec-1",
		TenantID:   "tenant-1",
		EmployeeID: "emp-1",
		Timestamp:  monday.Add(8 * time.Hour),
		Type:       models.PunchIn,
		Method:     models.MethodDevice,
	}
	f.repo.records["rec-1"] = record
	// The same row is visible to the classifier, as it is in production where
	// corrections and classification read one attendance table.
	f.addRecord(*record)

	updated, err := f.svc.Correct(context.Background(), "tenant-1", "rec-1", "actor-1", dto.CorrectPunchRequest{
		Timestamp: monday.Add(9*time.Hour + 5*time.Minute),
		Note:      "badge reader clock drift",
	})
	require.NoError(t, err)
	assert.False(t, updated.HasAnomaly)
	assert.Nil(t, updated.AnomalyType)
	require.NotNil(t, updated.LateMinutes)
	assert.Equal(t, 0, *updated.LateMinutes)
}

func TestCorrectLargeDeltaGoesPending(t *testing.T) {
	f := newCorrectionFixture(monday.Add(14 * time.Hour))
	f.publish(monday, dayShift())
	f.repo.records["rec-1"] = lateRecord()

	updated, err := f.svc.Correct(context.Background(), "tenant-1", "rec-1", "actor-1", dto.CorrectPunchRequest{
		Timestamp: monday.Add(13 * time.Hour),
		Note:      "afternoon arrival confirmed by manager",
	})
	require.NoError(t, err)
	assert.True(t, updated.NeedsApproval)
	require.NotNil(t, updated.ApprovalStatus)
	assert.Equal(t, models.ApprovalPending, *updated.ApprovalStatus)
	assert.Len(t, f.notifier.pending, 1)
	assert.Empty(t, f.notifier.resolved)
}

func TestCorrectForceApprovalBypassesPending(t *testing.T) {
	f := newCorrectionFixture(monday.Add(14 * time.Hour))
	f.publish(monday, dayShift())
	f.repo.records["rec-1"] = lateRecord()

	updated, err := f.svc.Correct(context.Background(), "tenant-1", "rec-1", "actor-1", dto.CorrectPunchRequest{
		Timestamp:     monday.Add(13 * time.Hour),
		Note:          "HR validated",
		ForceApproval: true,
	})
	require.NoError(t, err)
	assert.False(t, updated.NeedsApproval)
	assert.Nil(t, updated.ApprovalStatus)
	assert.Len(t, f.notifier.resolved, 1)
}

func TestCorrectOriginalAbsenceAlwaysPending(t *testing.T) {
	f := newCorrectionFixture(monday.Add(10 * time.Hour))
	f.publish(monday, dayShift())
	record := lateRecord()
	kind := models.AnomalyAbsence
	record.AnomalyType = &kind
	f.repo.records["rec-1"] = record

	updated, err := f.svc.Correct(context.Background(), "tenant-1", "rec-1", "actor-1", dto.CorrectPunchRequest{
		Timestamp: monday.Add(9*time.Hour + 35*time.Minute),
		Note:      "was on site",
	})
	require.NoError(t, err)
	assert.True(t, updated.NeedsApproval)
}

func TestCorrectUnknownRecord(t *testing.T) {
	f := newCorrectionFixture(monday.Add(10 * time.Hour))

	_, err := f.svc.Correct(context.Background(), "tenant-1", "missing", "actor-1", dto.CorrectPunchRequest{
		Timestamp: monday.Add(9 * time.Hour),
		Note:      "n/a",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func pendingRecord() *models.AttendanceRecord {
	record := lateRecord()
	status := models.ApprovalPending
	record.NeedsApproval = true
	record.ApprovalStatus = &status
	return record
}

func TestResolveApprovesCorrection(t *testing.T) {
	f := newCorrectionFixture(monday.Add(10 * time.Hour))
	f.repo.records["rec-1"] = pendingRecord()

	updated, err := f.svc.Resolve(context.Background(), "tenant-1", "rec-1", "approver-1", dto.ApproveCorrectionRequest{Approve: true})
	require.NoError(t, err)
	require.NotNil(t, updated.ApprovalStatus)
	assert.Equal(t, models.ApprovalApproved, *updated.ApprovalStatus)
	require.NotNil(t, updated.ApprovedBy)
	assert.Equal(t, "approver-1", *updated.ApprovedBy)
	assert.Len(t, f.notifier.resolved, 1)
	assert.Len(t, f.cache.patterns, 1)
}

func TestResolveRejectsCorrection(t *testing.T) {
	f := newCorrectionFixture(monday.Add(10 * time.Hour))
	f.repo.records["rec-1"] = pendingRecord()

	updated, err := f.svc.Resolve(context.Background(), "tenant-1", "rec-1", "approver-1", dto.ApproveCorrectionRequest{Approve: false, Note: "evidence missing"})
	require.NoError(t, err)
	require.NotNil(t, updated.ApprovalStatus)
	assert.Equal(t, models.ApprovalRejected, *updated.ApprovalStatus)
	require.NotNil(t, updated.CorrectionNote)
	assert.Equal(t, "evidence missing", *updated.CorrectionNote)
}

func TestResolveDecisionIsTerminal(t *testing.T) {
	f := newCorrectionFixture(monday.Add(10 * time.Hour))
	record := pendingRecord()
	decided := models.ApprovalApproved
	record.ApprovalStatus = &decided
	f.repo.records["rec-1"] = record

	_, err := f.svc.Resolve(context.Background(), "tenant-1", "rec-1", "approver-1", dto.ApproveCorrectionRequest{Approve: false})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestResolveWithoutPendingCorrection(t *testing.T) {
	f := newCorrectionFixture(monday.Add(10 * time.Hour))
	f.repo.records["rec-1"] = lateRecord()

	_, err := f.svc.Resolve(context.Background(), "tenant-1", "rec-1", "approver-1", dto.ApproveCorrectionRequest{Approve: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBulkCorrectIsolatesFailures(t *testing.T) {
	f := newCorrectionFixture(monday.Add(10 * time.Hour))
	f.publish(monday, dayShift())
	f.repo.records["rec-1"] = lateRecord()

	results := f.svc.BulkCorrect(context.Background(), "tenant-1", "actor-1", dto.BulkCorrectRequest{
		Corrections: []dto.BulkCorrectionItem{
			{RecordID: "rec-1", Timestamp: monday.Add(9*time.Hour + 5*time.Minute), Note: "ok"},
			{RecordID: "missing", Timestamp: monday.Add(9 * time.Hour), Note: "gone"},
		},
	})
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.NotEmpty(t, results[1].Error)
}
