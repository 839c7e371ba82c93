package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/timegrid-hq/timegrid-api/internal/models"
	appErrors "github.com/timegrid-hq/timegrid-api/pkg/errors"
)

const dashboardCacheTTL = 5 * time.Minute

// anomalyPriority orders kinds by operational severity for scoring.
var anomalyPriority = map[models.AnomalyKind]float64{
	models.AnomalyInsufficientRest: 10,
	models.AnomalyAbsence:          9,
	models.AnomalyAbsencePartial:   8,
	models.AnomalyMissingOut:       8,
	models.AnomalyAbsenceTechnical: 7,
	models.AnomalyMissingIn:        7,
	models.AnomalyLate:             6,
	models.AnomalyEarlyLeave:       5,
	models.AnomalyDoubleIn:         4,
	models.AnomalyPresenceExterne:  0,
}

type anomalyReportRepository interface {
	ListAnomalies(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	CountByKind(ctx context.Context, tenantID string, from, to time.Time) ([]models.KindCount, error)
	CountByEmployee(ctx context.Context, tenantID string, from, to time.Time, limit int) ([]models.EmployeeAnomalyCount, error)
	CountByEmployeeAndKind(ctx context.Context, tenantID string, from, to time.Time) (map[string]map[models.AnomalyKind]int, error)
	DailyCounts(ctx context.Context, tenantID string, from, to time.Time) ([]models.DailyAnomalyCount, error)
	PresenceStats(ctx context.Context, tenantID string, from, to time.Time) (models.PresenceStats, error)
	CountAnomaliesForEmployee(ctx context.Context, tenantID, employeeID string, from, to time.Time) (int, error)
	EmployeeNames(ctx context.Context, tenantID string, employeeIDs []string) (map[string]string, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AnomalyReportService serves the read-only anomaly aggregations consumed by
// the dashboard and exports.
type AnomalyReportService struct {
	records anomalyReportRepository
	cache   dashboardCache
	logger  *zap.Logger
	now     func() time.Time
}

// NewAnomalyReportService builds the service. The cache may be nil.
func NewAnomalyReportService(records anomalyReportRepository, cache dashboardCache, logger *zap.Logger) *AnomalyReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnomalyReportService{records: records, cache: cache, logger: logger, now: time.Now}
}

// GetAnomalies lists anomalous records with their severity score.
func (s *AnomalyReportService) GetAnomalies(ctx context.Context, tenantID string, filter models.AttendanceFilter) ([]models.AnomalySummary, int, error) {
	filter.TenantID = tenantID
	anomalous := true
	filter.HasAnomaly = &anomalous

	records, total, err := s.records.ListAnomalies(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "list anomalies")
	}

	from := s.now().AddDate(0, -1, 0)
	to := s.now()
	if filter.DateFrom != nil {
		from = *filter.DateFrom
	}
	if filter.DateTo != nil {
		to = *filter.DateTo
	}
	perEmployee, err := s.records.CountByEmployeeAndKind(ctx, tenantID, from, to)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "count anomalies per employee")
	}

	summaries := make([]models.AnomalySummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, models.AnomalySummary{
			Record: record,
			Score:  scoreAnomaly(record, perEmployee[record.EmployeeID]),
		})
	}
	return summaries, total, nil
}

// scoreAnomaly combines kind priority, recent frequency, missing
// justification and overall volume into a severity score capped at 20.
func scoreAnomaly(record models.AttendanceRecord, kindCounts map[models.AnomalyKind]int) float64 {
	if record.AnomalyType == nil {
		return 0
	}
	score := anomalyPriority[*record.AnomalyType]

	count := kindCounts[*record.AnomalyType]
	bonus := float64(count) * 0.5
	if bonus > 5 {
		bonus = 5
	}
	score += bonus

	if record.CorrectionNote == nil {
		score++
	}

	total := 0
	for _, c := range kindCounts {
		total += c
	}
	switch {
	case total > 10:
		score += 2
	case total > 5:
		score++
	}

	if score > 20 {
		score = 20
	}
	return score
}

// GetDailyReport summarises one tenant-day.
func (s *AnomalyReportService) GetDailyReport(ctx context.Context, tenantID string, date time.Time) (*models.DailyReport, error) {
	day := models.DateOnly(date)
	next := day.AddDate(0, 0, 1)

	byKind, err := s.records.CountByKind(ctx, tenantID, day, next)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "count anomalies by kind")
	}
	stats, err := s.records.PresenceStats(ctx, tenantID, day, next)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "load presence stats")
	}

	report := &models.DailyReport{
		Date:         day,
		PresentCount: stats.PresentDays,
		ByKind:       byKind,
		PresenceRate: rate(stats.PresentDays, stats.ScheduledDays),
	}
	for _, kc := range byKind {
		report.AnomalyCount += kc.Count
	}
	return report, nil
}

// GetPresenceRate returns the share of scheduled days with a presence.
func (s *AnomalyReportService) GetPresenceRate(ctx context.Context, tenantID string, from, to time.Time) (float64, error) {
	stats, err := s.records.PresenceStats(ctx, tenantID, from, to)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "load presence stats")
	}
	return rate(stats.PresentDays, stats.ScheduledDays), nil
}

// GetPunctualityRate returns the share of present days without lateness.
func (s *AnomalyReportService) GetPunctualityRate(ctx context.Context, tenantID string, from, to time.Time) (float64, error) {
	stats, err := s.records.PresenceStats(ctx, tenantID, from, to)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "load presence stats")
	}
	return rate(stats.OnTimeDays, stats.PresentDays), nil
}

// GetTrends returns the daily anomaly counts over the window.
func (s *AnomalyReportService) GetTrends(ctx context.Context, tenantID string, from, to time.Time) ([]models.TrendPoint, error) {
	daily, err := s.records.DailyCounts(ctx, tenantID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "load daily counts")
	}
	points := make([]models.TrendPoint, 0, len(daily))
	for _, d := range daily {
		points = append(points, models.TrendPoint{Period: d.Date.Format("2006-01-02"), Count: d.Count})
	}
	return points, nil
}

// DetectRecurringAnomalies flags employee/kind pairs with at least three
// occurrences in the window and labels their frequency.
func (s *AnomalyReportService) DetectRecurringAnomalies(ctx context.Context, tenantID string, from, to time.Time) ([]models.RecurringAnomaly, error) {
	perEmployee, err := s.records.CountByEmployeeAndKind(ctx, tenantID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "count anomalies per employee")
	}

	ids := make([]string, 0, len(perEmployee))
	for id := range perEmployee {
		ids = append(ids, id)
	}
	names, err := s.records.EmployeeNames(ctx, tenantID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "load employee names")
	}

	windowDays := int(to.Sub(from).Hours() / 24)
	if windowDays <= 0 {
		windowDays = 1
	}

	var recurring []models.RecurringAnomaly
	for employeeID, kinds := range perEmployee {
		for kind, count := range kinds {
			if count < 3 {
				continue
			}
			recurring = append(recurring, models.RecurringAnomaly{
				EmployeeID:   employeeID,
				EmployeeName: names[employeeID],
				Kind:         kind,
				Count:        count,
				Frequency:    frequencyLabel(count, windowDays),
			})
		}
	}
	return recurring, nil
}

func frequencyLabel(count, windowDays int) models.RecurrenceFrequency {
	perWeek := float64(count) / (float64(windowDays) / 7)
	switch {
	case perWeek >= 5:
		return models.RecurrenceDaily
	case perWeek >= 1:
		return models.RecurrenceWeekly
	default:
		return models.RecurrenceMonthly
	}
}

// GetDashboard builds the anomalies dashboard, cached per tenant and window.
// The boolean reports whether the result came from cache.
func (s *AnomalyReportService) GetDashboard(ctx context.Context, tenantID string, from, to time.Time) (*models.AnomalyDashboard, bool, error) {
	key := fmt.Sprintf("dashboard:anomalies:%s:%s:%s", tenantID, from.Format("2006-01-02"), to.Format("2006-01-02"))

	if s.cache != nil {
		var cached models.AnomalyDashboard
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		} else if hit {
			return &cached, true, nil
		}
	}

	byKind, err := s.records.CountByKind(ctx, tenantID, from, to)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "count anomalies by kind")
	}
	daily, err := s.records.DailyCounts(ctx, tenantID, from, to)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "load daily counts")
	}
	top, err := s.records.CountByEmployee(ctx, tenantID, from, to, 10)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "load top employees")
	}
	stats, err := s.records.PresenceStats(ctx, tenantID, from, to)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "load presence stats")
	}

	dashboard := &models.AnomalyDashboard{
		From:            from,
		To:              to,
		ByKind:          byKind,
		Daily:           daily,
		TopEmployees:    top,
		PresenceRate:    rate(stats.PresentDays, stats.ScheduledDays),
		PunctualityRate: rate(stats.OnTimeDays, stats.PresentDays),
		GeneratedAt:     s.now(),
	}
	for _, kc := range byKind {
		dashboard.Total += kc.Count
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, dashboard, dashboardCacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}

	return dashboard, false, nil
}

// GetMonthlyReport is the dashboard aggregate for one calendar month.
func (s *AnomalyReportService) GetMonthlyReport(ctx context.Context, tenantID string, year int, month time.Month) (*models.AnomalyDashboard, bool, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return s.GetDashboard(ctx, tenantID, from, from.AddDate(0, 1, 0))
}

// GetHighAnomalyRateEmployees lists employees whose anomaly count per
// scheduled day exceeds the threshold.
func (s *AnomalyReportService) GetHighAnomalyRateEmployees(ctx context.Context, tenantID string, from, to time.Time, threshold float64) ([]models.EmployeeAnomalyCount, error) {
	counts, err := s.records.CountByEmployee(ctx, tenantID, from, to, 0)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "load employee counts")
	}
	var high []models.EmployeeAnomalyCount
	for _, c := range counts {
		if c.ScheduledDays == 0 {
			continue
		}
		c.Rate = float64(c.Count) / float64(c.ScheduledDays)
		if c.Rate >= threshold {
			high = append(high, c)
		}
	}
	return high, nil
}

func rate(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
