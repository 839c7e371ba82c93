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

type stubReportRepo struct {
	anomalies       []models.AttendanceRecord
	total           int
	byKind          []models.KindCount
	byEmployee      []models.EmployeeAnomalyCount
	perEmployeeKind map[string]map[models.AnomalyKind]int
	daily           []models.DailyAnomalyCount
	stats           models.PresenceStats
	names           map[string]string
	byKindCalls     int
}

func (s *stubReportRepo) ListAnomalies(_ context.Context, _ models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	return s.anomalies, s.total, nil
}

func (s *stubReportRepo) CountByKind(_ context.Context, _ string, _, _ time.Time) ([]models.KindCount, error) {
	s.byKindCalls++
	return s.byKind, nil
}

func (s *stubReportRepo) CountByEmployee(_ context.Context, _ string, _, _ time.Time, _ int) ([]models.EmployeeAnomalyCount, error) {
	return s.byEmployee, nil
}

func (s *stubReportRepo) CountByEmployeeAndKind(_ context.Context, _ string, _, _ time.Time) (map[string]map[models.AnomalyKind]int, error) {
	return s.perEmployeeKind, nil
}

func (s *stubReportRepo) DailyCounts(_ context.Context, _ string, _, _ time.Time) ([]models.DailyAnomalyCount, error) {
	return s.daily, nil
}

func (s *stubReportRepo) PresenceStats(_ context.Context, _ string, _, _ time.Time) (models.PresenceStats, error) {
	return s.stats, nil
}

func (s *stubReportRepo) CountAnomaliesForEmployee(_ context.Context, _, _ string, _, _ time.Time) (int, error) {
	return 0, nil
}

func (s *stubReportRepo) EmployeeNames(_ context.Context, _ string, _ []string) (map[string]string, error) {
	return s.names, nil
}

type stubDashboardCache struct {
	store map[string]models.AnomalyDashboard
	sets  int
}

func (c *stubDashboardCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	if d, castable := dest.(*models.AnomalyDashboard); castable {
		*d = v
		return true, nil
	}
	return false, nil
}

func (c *stubDashboardCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if c.store == nil {
		c.store = map[string]models.AnomalyDashboard{}
	}
	if d, castable := value.(*models.AnomalyDashboard); castable {
		c.store[key] = *d
	}
	c.sets++
	return nil
}

func TestGetAnomaliesScoresRecords(t *testing.T) {
	kind := models.AnomalyLate
	repo := &stubReportRepo{
		anomalies: []models.AttendanceRecord{{ID: "rec-1", EmployeeID: "emp-1", HasAnomaly: true, AnomalyType: &kind}},
		total:     1,
		perEmployeeKind: map[string]map[models.AnomalyKind]int{
			"emp-1": {models.AnomalyLate: 2},
		},
	}
	svc := NewAnomalyReportService(repo, nil, zap.NewNop())

	summaries, total, err := svc.GetAnomalies(context.Background(), "tenant-1", models.AttendanceFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, summaries, 1)
	// LATE priority 6, 2 occurrences (+1), no correction note (+1).
	assert.InDelta(t, 8.0, summaries[0].Score, 0.001)
}

func TestScoreAnomalyHeavyOffender(t *testing.T) {
	kind := models.AnomalyInsufficientRest
	record := models.AttendanceRecord{AnomalyType: &kind}
	counts := map[models.AnomalyKind]int{
		models.AnomalyInsufficientRest: 20,
		models.AnomalyAbsence:          5,
	}
	// Priority 10, frequency bonus capped at 5, no note (+1), volume over 10 (+2).
	assert.InDelta(t, 18.0, scoreAnomaly(record, counts), 0.001)
}

func TestScoreAnomalyWithoutType(t *testing.T) {
	assert.Zero(t, scoreAnomaly(models.AttendanceRecord{}, nil))
}

func TestGetDailyReport(t *testing.T) {
	repo := &stubReportRepo{
		byKind: []models.KindCount{{Kind: models.AnomalyLate, Count: 2}, {Kind: models.AnomalyAbsence, Count: 1}},
		stats:  models.PresenceStats{ScheduledDays: 20, PresentDays: 18, OnTimeDays: 15},
	}
	svc := NewAnomalyReportService(repo, nil, zap.NewNop())

	report, err := svc.GetDailyReport(context.Background(), "tenant-1", monday)
	require.NoError(t, err)
	assert.Equal(t, 3, report.AnomalyCount)
	assert.Equal(t, 18, report.PresentCount)
	assert.InDelta(t, 90.0, report.PresenceRate, 0.001)
}

func TestPunctualityRate(t *testing.T) {
	repo := &stubReportRepo{stats: models.PresenceStats{ScheduledDays: 20, PresentDays: 18, OnTimeDays: 15}}
	svc := NewAnomalyReportService(repo, nil, zap.NewNop())

	punctuality, err := svc.GetPunctualityRate(context.Background(), "tenant-1", monday, monday.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.InDelta(t, 83.33, punctuality, 0.01)
}

func TestRatesWithZeroDenominator(t *testing.T) {
	repo := &stubReportRepo{}
	svc := NewAnomalyReportService(repo, nil, zap.NewNop())

	presence, err := svc.GetPresenceRate(context.Background(), "tenant-1", monday, monday.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Zero(t, presence)
}

func TestDetectRecurringAnomalies(t *testing.T) {
	repo := &stubReportRepo{
		perEmployeeKind: map[string]map[models.AnomalyKind]int{
			"emp-1": {models.AnomalyLate: 5, models.AnomalyDoubleIn: 2},
		},
		names: map[string]string{"emp-1": "Jane Doe"},
	}
	svc := NewAnomalyReportService(repo, nil, zap.NewNop())

	recurring, err := svc.DetectRecurringAnomalies(context.Background(), "tenant-1", monday, monday.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Len(t, recurring, 1)
	assert.Equal(t, models.AnomalyLate, recurring[0].Kind)
	assert.Equal(t, 5, recurring[0].Count)
	assert.Equal(t, "Jane Doe", recurring[0].EmployeeName)
	assert.Equal(t, models.RecurrenceWeekly, recurring[0].Frequency)
}

func TestFrequencyLabel(t *testing.T) {
	assert.Equal(t, models.RecurrenceDaily, frequencyLabel(25, 30))
	assert.Equal(t, models.RecurrenceWeekly, frequencyLabel(5, 30))
	assert.Equal(t, models.RecurrenceMonthly, frequencyLabel(3, 30))
}

func TestGetDashboardCachesResult(t *testing.T) {
	repo := &stubReportRepo{
		byKind: []models.KindCount{{Kind: models.AnomalyLate, Count: 4}},
		stats:  models.PresenceStats{ScheduledDays: 10, PresentDays: 8, OnTimeDays: 6},
	}
	cache := &stubDashboardCache{}
	svc := NewAnomalyReportService(repo, cache, zap.NewNop())

	first, hit, err := svc.GetDashboard(context.Background(), "tenant-1", monday, monday.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 4, first.Total)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 1, repo.byKindCalls)

	second, hit, err := svc.GetDashboard(context.Background(), "tenant-1", monday, monday.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, 1, repo.byKindCalls)
}

func TestGetHighAnomalyRateEmployees(t *testing.T) {
	repo := &stubReportRepo{
		byEmployee: []models.EmployeeAnomalyCount{
			{EmployeeID: "emp-1", Count: 6, ScheduledDays: 10},
			{EmployeeID: "emp-2", Count: 1, ScheduledDays: 10},
			{EmployeeID: "emp-3", Count: 5, ScheduledDays: 0},
		},
	}
	svc := NewAnomalyReportService(repo, nil, zap.NewNop())

	high, err := svc.GetHighAnomalyRateEmployees(context.Background(), "tenant-1", monday, monday.AddDate(0, 0, 30), 0.5)
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, "emp-1", high[0].EmployeeID)
	assert.InDelta(t, 0.6, high[0].Rate, 0.001)
}

func TestGetTrends(t *testing.T) {
	repo := &stubReportRepo{
		daily: []models.DailyAnomalyCount{
			{Date: monday, Count: 2},
			{Date: monday.AddDate(0, 0, 1), Count: 0},
		},
	}
	svc := NewAnomalyReportService(repo, nil, zap.NewNop())

	points, err := svc.GetTrends(context.Background(), "tenant-1", monday, monday.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2025-03-10", points[0].Period)
	assert.Equal(t, 2, points[0].Count)
}
