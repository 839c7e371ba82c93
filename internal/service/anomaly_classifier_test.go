package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

type stubAttendanceRepo struct {
	days         map[string][]models.AttendanceRecord
	lastOut      *models.AttendanceRecord
	anomalyCount int
	avgIn        *int
	avgOut       *int
}

func (s *stubAttendanceRepo) FindByEmployeeAndDay(_ context.Context, _, _ string, day time.Time) ([]models.AttendanceRecord, error) {
	return s.days[models.DateOnly(day).Format("2006-01-02")], nil
}

func (s *stubAttendanceRepo) LastOutBefore(_ context.Context, _, _ string, _ time.Time) (*models.AttendanceRecord, error) {
	return s.lastOut, nil
}

func (s *stubAttendanceRepo) CountAnomaliesSince(_ context.Context, _, _ string, _ models.AnomalyKind, _ time.Time) (int, error) {
	return s.anomalyCount, nil
}

func (s *stubAttendanceRepo) AverageClockMinutes(_ context.Context, _, _ string, punchType models.PunchType, _ time.Time) (*int, error) {
	if punchType == models.PunchIn {
		return s.avgIn, nil
	}
	return s.avgOut, nil
}

type stubScheduleRepo struct {
	published      map[string]*models.Schedule
	any            map[string]*models.Schedule
	publishedCalls int
}

func (s *stubScheduleRepo) FindByEmployeeAndDate(_ context.Context, _, _ string, date time.Time, _ models.ScheduleStatus) (*models.Schedule, error) {
	s.publishedCalls++
	return s.published[models.DateOnly(date).Format("2006-01-02")], nil
}

func (s *stubScheduleRepo) FindAnyByEmployeeAndDate(_ context.Context, _, _ string, date time.Time) (*models.Schedule, error) {
	return s.any[models.DateOnly(date).Format("2006-01-02")], nil
}

type stubEmployeeRepo struct {
	employee *models.Employee
}

func (s *stubEmployeeRepo) FindByID(_ context.Context, _, _ string) (*models.Employee, error) {
	return s.employee, nil
}

type stubLeaveRepo struct {
	leave    *models.Leave
	recovery bool
}

func (s *stubLeaveRepo) FindCovering(_ context.Context, _, _ string, _ time.Time) (*models.Leave, error) {
	return s.leave, nil
}

func (s *stubLeaveRepo) HasRecoveryDay(_ context.Context, _, _ string, _ time.Time) (bool, error) {
	return s.recovery, nil
}

type stubHolidayRepo struct {
	holidays map[string]*models.Holiday
}

func (s *stubHolidayRepo) FindByDate(_ context.Context, _ string, date time.Time) (*models.Holiday, error) {
	if s.holidays == nil {
		return nil, nil
	}
	return s.holidays[models.DateOnly(date).Format("2006-01-02")], nil
}

type stubPolicyRepo struct {
	policy models.TenantPolicy
	calls  int
}

func (s *stubPolicyRepo) PolicyFor(_ context.Context, _ string) (models.TenantPolicy, error) {
	s.calls++
	return s.policy, nil
}

// classifierFixture wires the engine with stub repositories and a frozen clock.
type classifierFixture struct {
	records    *stubAttendanceRepo
	schedules  *stubScheduleRepo
	employees  *stubEmployeeRepo
	leaves     *stubLeaveRepo
	holidays   *stubHolidayRepo
	policies   *stubPolicyRepo
	resolver   *ScheduleResolver
	sessions   *SessionReconstructor
	classifier *AnomalyClassifier
}

func newClassifierFixture(now time.Time) *classifierFixture {
	f := &classifierFixture{
		records:   &stubAttendanceRepo{days: map[string][]models.AttendanceRecord{}},
		schedules: &stubScheduleRepo{published: map[string]*models.Schedule{}, any: map[string]*models.Schedule{}},
		employees: &stubEmployeeRepo{},
		leaves:    &stubLeaveRepo{},
		holidays:  &stubHolidayRepo{},
		policies:  &stubPolicyRepo{policy: models.DefaultTenantPolicy("tenant-1")},
	}
	f.resolver = NewScheduleResolver(f.schedules, f.employees, zap.NewNop())
	f.resolver.now = func() time.Time { return now }
	f.sessions = NewSessionReconstructor(f.records, zap.NewNop())
	f.sessions.now = func() time.Time { return now }
	f.classifier = NewAnomalyClassifier(f.records, f.leaves, f.holidays, f.policies, f.resolver, f.sessions, zap.NewNop())
	return f
}

func dayShift() *models.Shift {
	return &models.Shift{ID: "shift-day", StartTime: "09:00", EndTime: "17:00", BreakDuration: 60}
}

func nightShift() *models.Shift {
	return &models.Shift{ID: "shift-night", StartTime: "22:00", EndTime: "06:00", BreakDuration: 30}
}

func (f *classifierFixture) publish(day time.Time, shift *models.Shift) {
	key := models.DateOnly(day).Format("2006-01-02")
	f.schedules.published[key] = &models.Schedule{
		ID:     "sched-" + key,
		Date:   models.DateOnly(day),
		Status: models.SchedulePublished,
		Shift:  shift,
	}
}

func (f *classifierFixture) addRecord(rec models.AttendanceRecord) {
	key := models.DateOnly(rec.Timestamp).Format("2006-01-02")
	f.records.days[key] = append(f.records.days[key], rec)
}

// monday is a fixed reference working day.
var monday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func TestClassifyPunctualInIsClean(t *testing.T) {
	f := newClassifierFixture(monday.Add(9*time.Hour + 5*time.Minute))
	f.publish(monday, dayShift())

	result, err := f.classifier.Classify(context.Background(), "tenant-1", "emp-1",
		monday.Add(9*time.Hour+5*time.Minute), models.PunchIn, models.MethodDevice)
	require.NoError(t, err)
	assert.False(t, result.HasAnomaly)
}

func TestClassifyLateBeyondTolerance(t *testing.T) {
	f := newClassifierFixture(monday.Add(10 * time.Hour))
	f.publish(monday, dayShift())

	result, err := f.classifier.Classify(context.Background(), "tenant-1", "emp-1",
		monday.Add(9*time.Hour+25*time.Minute), models.PunchIn, models.MethodDevice)
	require.NoError(t, err)
	assert.True(t, result.HasAnomaly)
	assert.Equal(t, models.AnomalyLate, result.Kind)
	assert.Contains(t, result.Note, "late by 15 minutes")
}

func TestClassifyAbsencePartial(t *testing.T) {
	f := newClassifierFixture(monday.Add(12 * time.Hour))
	f.publish(monday, dayShift())

	result, err := f.classifier.Classify(context.Background(), "tenant-1", "emp-1",
		monday.Add(11*time.Hour+30*time.Minute), models.PunchIn, models.MethodDevice)
	require.NoError(t, err)
	assert.True(t, result.HasAnomaly)
	assert.Equal(t, models.AnomalyAbsencePartial, result.Kind)
}

func TestClassifyDoubleInDuplicateTap(t *testing.T) {
	f := newClassifierFixture(monday.Add(10 * time.Hour))
	f.publish(monday, dayShift())
	f.addRecord(models.AttendanceRecord{ID: "rec-1", Timestamp: monday.Add(9 * time.Hour), Type: models.PunchIn})

	result, err := f.classifier.Classify(context.Background(), "tenant-1", "emp-1",
		monday.Add(9*time.Hour+90*time.Second), models.PunchIn, models.MethodDevice)
	require.NoError(t, err)
	assert.True(t, result.HasAnomaly)
	assert.Equal(t, models.AnomalyDoubleIn, result.Kind)
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, models.SuggestIgnoreDuplicate, result.Suggestions[0].Kind)
	assert.Equal(t, 95, result.Suggestions[0].Confidence)
	require.NotNil(t, result.Suggestions[0].TargetID)
	assert.Equal(t, "rec-1", *result.Suggestions[0].TargetID)
}

func TestClassifySecondInWithoutOut(t *testing.T) {
	f := newClassifierFixture(monday.Add(13*time.Hour + 30*time.Minute))
	f.publish(monday, dayShift())
	f.addRecord(models.AttendanceRecord{ID: "rec-1", Timestamp: monday.Add(9 * time.Hour), Type: models.PunchIn})

	result, err := f.classifier.Classify(context.Background(), "tenant-1", "emp-1",
		monday.Add(13*time.Hour), models.PunchIn, models.MethodDevice)
	require.NoError(t, err)
	assert.True(t, result.HasAnomaly)
	assert.Equal(t, models.AnomalyDoubleIn, result.Kind)
	require.Len(t, result.Suggestions, 2)
	// First IN sits exactly on the expected start, so the second one goes.
	assert.Equal(t, models.SuggestDeleteSecondIn, result.Suggestions[0].Kind)
	assert.Equal(t, models.SuggestAddOutBetween, result.Suggestions[1].Kind)
}

func TestClassifyMissingInMobileOutIsExternal(t *testing.T) {
	f := newClassifierFixture(monday.Add(17*time.Hour + 5*time.Minute))
	f.publish(monday, dayShift())

	result, err := f.classifier.Classify(context.Background(), "tenant-1", "emp-1",
		monday.Add(17*time.Hour), models.PunchOut, models.MethodMobileGPS)
	require.NoError(t, err)
	assert.False(t, result.HasAnomaly)
	assert.Equal(t, models.AnomalyPresenceExterne, result.Kind)
}

func TestClassifyNightPairAcrossMidnightIsClean(t *testing.T) {
	f := newClassifierFixture(monday.Add(6*time.Hour + 30*time.Minute))
	sunday := monday.AddDate(0, 0, -1)
	f.publish(sunday, nightShift())
	f.addRecord(models.AttendanceRecord{ID: "in-y", Timestamp: sunday.Add(22 * time.Hour), Type: models.PunchIn})

	result, err := f.classifier.Classify(context.Background(), "tenant-1", "emp-1",
		monday.Add(6*time.Hour+10*time.Minute), models.PunchOut, models.MethodDevice)
	require.NoError(t, err)
	assert.False(t, result.HasAnomaly)
}

func TestClassifyStaleYesterdaySessionFlagsMissingOut(t *testing.T) {
	f := newClassifierFixture(monday.Add(18*time.Hour + 5*time.Minute))
	sunday := monday.AddDate(0, 0, -1)
	f.addRecord(models.AttendanceRecord{ID: "in-y", Timestamp: sunday.Add(8 * time.Hour), Type: models.PunchIn})

	result, err := f.classifier.Classify(context.Background(), "tenant-1", "emp-1",
		monday.Add(18*time.Hour), models.PunchOut, models.MethodDevice)
	require.NoError(t, err)
	assert.True(t, result.HasAnomaly)
	assert.Equal(t, models.AnomalyMissingOut, result.Kind)
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, models.SuggestCloseYesterdaySession, result.Suggestions[0].Kind)
}

func TestClassifyMissingOutOnNewIn(t *testing.T) {
	f := newClassifierFixture(monday.Add(20*time.Hour + 5*time.Minute))
	policy := models.DefaultTenantPolicy("tenant-1")
	policy.DoubleInDetectionWindowHrs = 6
	f.policies.policy = policy
	f.publish(monday, &models.Shift{ID: "shift-early", StartTime: "08:00", EndTime: "16:00", BreakDuration: 60})
	f.addRecord(models.AttendanceRecord{ID: "rec-a", Timestamp: monday.Add(4 * time.Hour), Type: models.PunchIn})
	f.addRecord(models.AttendanceRecord{ID: "rec-b", Timestamp: monday.Add(8 * time.Hour), Type: models.PunchIn})
	f.addRecord(models.AttendanceRecord{ID: "rec-c", Timestamp: monday.Add(16 * time.Hour), Type: models.PunchOut})

	result, err := f.classifier.Classify(context.Background(), "tenant-1", "emp-1",
		monday.Add(20*time.Hour), models.PunchIn, models.MethodDevice)
	require.NoError(t, err)
	assert.True(t, result.HasAnomaly)
	assert.Equal(t, models.AnomalyMissingOut, result.Kind)
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, models.SuggestCloseSessionMulti, result.Suggestions[0].Kind)
	require.NotNil(t, result.Suggestions[0].TargetID)
	assert.Equal(t, "rec-a", *result.Suggestions[0].TargetID)
}

func TestClassifyLeaveConflict(t *testing.T) {
	f := newClassifierFixture(monday.Add(10 * time.Hour))
	f.publish(monday, dayShift())
	f.leaves.leave = &models.Leave{
		Type:      models.LeaveTypeStandard,
		Status:    models.LeaveApproved,
		StartDate: monday,
		EndDate:   monday.AddDate(0, 0, 2),
	}

	result, err := f.classifier.Classify(context.Background(), "tenant-1", "emp-1",
		monday.Add(9*time.Hour), models.PunchIn, models.MethodDevice)
	require.NoError(t, err)
	assert.True(t, result.HasAnomaly)
	assert.Equal(t, models.AnomalyLeaveConflict, result.Kind)
}

func TestClassifyRemoteLeaveAllowsUnplannedPunch(t *testing.T) {
	f := newClassifierFixture(monday.Add(10 * time.Hour))
	f.leaves.leave = &models.Leave{
		Type:      models.LeaveTypeRemote,
		Status:    models.LeaveApproved,
		StartDate: monday,
		EndDate:   monday,
	}

	result, err := f.classifier.Classify(context.Background(), "tenant-1", "emp-1",
		monday.Add(9*time.Hour), models.PunchIn, models.MethodDevice)
	require.NoError(t, err)
	assert.False(t, result.HasAnomaly)
}

func TestClassifyUnplannedWeekendWork(t *testing.T) {
	sunday := monday.AddDate(0, 0, -1)
	f := newClassifierFixture(sunday.Add(15 * time.Hour))

	result, err := f.classifier.Classify(context.Background(), "tenant-1", "emp-1",
		sunday.Add(10*time.Hour), models.PunchIn, models.MethodDevice)
	require.NoError(t, err)
	assert.True(t, result.HasAnomaly)
	assert.Equal(t, models.AnomalyWeekendWork, result.Kind)
}

func TestClassifyUnplannedWorkingDayIsAbsence(t *testing.T) {
	f := newClassifierFixture(monday.Add(15 * time.Hour))

	result, err := f.classifier.Classify(context.Background(), "tenant-1", "emp-1",
		monday.Add(10*time.Hour), models.PunchIn, models.MethodDevice)
	require.NoError(t, err)
	assert.True(t, result.HasAnomaly)
	assert.Equal(t, models.AnomalyAbsence, result.Kind)
}

func TestClassifyUnpublishedScheduleIsAbsenceTechnical(t *testing.T) {
	f := newClassifierFixture(monday.Add(15 * time.Hour))
	key := monday.Format("2006-01-02")
	f.schedules.any[key] = &models.Schedule{ID: "sched-draft", Date: monday, Status: models.ScheduleDraft, Shift: dayShift()}

	result, err := f.classifier.Classify(context.Background(), "tenant-1", "emp-1",
		monday.Add(9*time.Hour), models.PunchIn, models.MethodDevice)
	require.NoError(t, err)
	assert.True(t, result.HasAnomaly)
	assert.Equal(t, models.AnomalyAbsenceTechnical, result.Kind)
	assert.Contains(t, result.Note, "DRAFT")
}

func TestClassifyEarlyLeave(t *testing.T) {
	f := newClassifierFixture(monday.Add(16 * time.Hour))
	f.publish(monday, dayShift())
	f.addRecord(models.AttendanceRecord{ID: "rec-1", Timestamp: monday.Add(9 * time.Hour), Type: models.PunchIn})

	result, err := f.classifier.Classify(context.Background(), "tenant-1", "emp-1",
		monday.Add(16*time.Hour), models.PunchOut, models.MethodDevice)
	require.NoError(t, err)
	assert.True(t, result.HasAnomaly)
	assert.Equal(t, models.AnomalyEarlyLeave, result.Kind)
	assert.Contains(t, result.Note, "left 55 minutes")
}

func TestClassifyInsufficientRest(t *testing.T) {
	f := newClassifierFixture(monday.Add(9 * time.Hour))
	f.publish(monday, dayShift())
	sunday := monday.AddDate(0, 0, -1)
	f.records.lastOut = &models.AttendanceRecord{ID: "out-y", Timestamp: sunday.Add(23 * time.Hour), Type: models.PunchOut}

	result, err := f.classifier.Classify(context.Background(), "tenant-1", "emp-1",
		monday.Add(9*time.Hour), models.PunchIn, models.MethodDevice)
	require.NoError(t, err)
	assert.True(t, result.HasAnomaly)
	assert.Equal(t, models.AnomalyInsufficientRest, result.Kind)
	assert.Contains(t, result.Note, "10.0 hours of rest")
}

func TestClassifyHolidayWorked(t *testing.T) {
	f := newClassifierFixture(monday.Add(9 * time.Hour))
	f.publish(monday, dayShift())
	f.holidays.holidays = map[string]*models.Holiday{
		monday.Format("2006-01-02"): {ID: "hol-1", Date: monday, Name: "Independence Day"},
	}

	result, err := f.classifier.Classify(context.Background(), "tenant-1", "emp-1",
		monday.Add(9*time.Hour), models.PunchIn, models.MethodDevice)
	require.NoError(t, err)
	assert.True(t, result.HasAnomaly)
	assert.Equal(t, models.AnomalyHolidayWorked, result.Kind)
	assert.Contains(t, result.Note, "Independence Day")
}

func TestClassifyMissionPunchOnHolidayIsClean(t *testing.T) {
	f := newClassifierFixture(monday.Add(9 * time.Hour))
	f.publish(monday, dayShift())
	f.holidays.holidays = map[string]*models.Holiday{
		monday.Format("2006-01-02"): {ID: "hol-1", Date: monday, Name: "Independence Day"},
	}

	result, err := f.classifier.Classify(context.Background(), "tenant-1", "emp-1",
		monday.Add(9*time.Hour), models.PunchMissionStart, models.MethodDevice)
	require.NoError(t, err)
	assert.False(t, result.HasAnomaly)
}
