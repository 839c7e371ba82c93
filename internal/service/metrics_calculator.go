package service

import (
	"context"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/timegrid-hq/timegrid-api/internal/models"
	appErrors "github.com/timegrid-hq/timegrid-api/pkg/errors"
)

// MetricsCalculator derives worked hours, lateness, early leave and overtime
// for a punch once it is classified.
type MetricsCalculator struct {
	employees employeeReader
	holidays  holidayRepository
	policies  policyProvider
	resolver  *ScheduleResolver
	sessions  *SessionReconstructor
	logger    *zap.Logger
}

// NewMetricsCalculator builds a calculator.
func NewMetricsCalculator(
	employees employeeReader,
	holidays holidayRepository,
	policies policyProvider,
	resolver *ScheduleResolver,
	sessions *SessionReconstructor,
	logger *zap.Logger,
) *MetricsCalculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsCalculator{
		employees: employees,
		holidays:  holidays,
		policies:  policies,
		resolver:  resolver,
		sessions:  sessions,
		logger:    logger,
	}
}

// Compute returns the metrics for the punch. Late minutes only apply to IN;
// worked hours, early-leave and overtime only to OUT. Soft conditions produce
// empty metrics, never an error.
func (m *MetricsCalculator) Compute(ctx context.Context, tenantID, employeeID string, ts time.Time, punchType models.PunchType) (models.Metrics, error) {
	policy, err := m.policies.PolicyFor(ctx, tenantID)
	if err != nil {
		return models.Metrics{}, err
	}
	resolved, err := m.resolver.Resolve(ctx, tenantID, employeeID, ts)
	if err != nil {
		return models.Metrics{}, err
	}
	return m.ComputeWith(ctx, &PunchSnapshot{Policy: policy, Resolved: resolved}, tenantID, employeeID, ts, punchType, "")
}

// ComputeWith derives the metrics from an already-built snapshot. A non-empty
// excludeID drops that record from session reconstruction, mirroring
// classification during a correction.
func (m *MetricsCalculator) ComputeWith(ctx context.Context, snap *PunchSnapshot, tenantID, employeeID string, ts time.Time, punchType models.PunchType, excludeID string) (models.Metrics, error) {
	switch punchType {
	case models.PunchIn:
		return m.computeIn(ts, snap.Policy, snap.Resolved), nil
	case models.PunchOut:
		return m.computeOut(ctx, tenantID, employeeID, ts, snap.Policy, snap.Resolved, excludeID)
	default:
		return models.Metrics{}, nil
	}
}

func (m *MetricsCalculator) computeIn(ts time.Time, policy models.TenantPolicy, resolved *models.ResolvedSchedule) models.Metrics {
	if resolved == nil {
		return models.Metrics{}
	}
	expected := resolved.ExpectedStart(resolved.Date)
	raw := ts.Sub(expected).Minutes() - float64(policy.LateToleranceEntry)
	late := 0
	if raw > 0 {
		late = int(math.Round(raw))
	}
	return models.Metrics{LateMinutes: &late}
}

func (m *MetricsCalculator) computeOut(ctx context.Context, tenantID, employeeID string, ts time.Time, policy models.TenantPolicy, resolved *models.ResolvedSchedule, excludeID string) (models.Metrics, error) {
	day, err := m.sessions.SessionsForDayExcluding(ctx, tenantID, employeeID, ts, excludeID)
	if err != nil {
		return models.Metrics{}, err
	}

	firstIn := firstInBefore(day.Records, ts)
	if firstIn == nil && resolved != nil && resolved.Source == models.SourcePreviousNight {
		prev, err := m.sessions.SessionsForDayExcluding(ctx, tenantID, employeeID, ts.AddDate(0, 0, -1), excludeID)
		if err != nil {
			return models.Metrics{}, err
		}
		firstIn = firstInBefore(prev.Records, ts)
	}

	metrics := models.Metrics{}

	if resolved != nil {
		early := m.earlyLeaveMinutes(ts, policy, resolved)
		metrics.EarlyLeaveMinutes = &early
	}

	if firstIn == nil {
		return metrics, nil
	}

	plannedBreak := policy.BreakDurationMinutes
	if resolved != nil && resolved.Shift.BreakDuration > 0 {
		plannedBreak = resolved.Shift.BreakDuration
	}

	actualBreak := plannedBreak
	if policy.RequireBreakPunch {
		actualBreak = day.BreakMinutes
	}

	rawMinutes := ts.Sub(firstIn.Timestamp).Minutes()
	workedMinutes := rawMinutes - float64(actualBreak)
	if workedMinutes < 0 {
		workedMinutes = 0
	}

	hours := workedMinutes / 60
	metrics.HoursWorked = &hours

	overtime, err := m.overtimeMinutes(ctx, tenantID, employeeID, firstIn.Timestamp, ts, workedMinutes, plannedBreak, policy, resolved)
	if err != nil {
		return models.Metrics{}, err
	}
	metrics.OvertimeMinutes = &overtime

	return metrics, nil
}

func (m *MetricsCalculator) earlyLeaveMinutes(ts time.Time, policy models.TenantPolicy, resolved *models.ResolvedSchedule) int {
	expectedEnd := resolved.ExpectedEnd(resolved.Date)
	diff := expectedEnd.Sub(ts)
	if resolved.Shift.IsNight() && diff > 12*time.Hour {
		expectedEnd = expectedEnd.AddDate(0, 0, -1)
		diff = expectedEnd.Sub(ts)
	}
	raw := diff.Minutes() - float64(policy.EarlyToleranceExit)
	if raw <= 0 {
		return 0
	}
	return int(math.Round(raw))
}

// overtimeMinutes splits worked minutes at the UTC midnight boundary when the
// session crosses into or out of a holiday, prices the holiday share, and
// rounds the total to the tenant's rounding granularity.
func (m *MetricsCalculator) overtimeMinutes(ctx context.Context, tenantID, employeeID string, in, out time.Time, workedMinutes float64, plannedBreak int, policy models.TenantPolicy, resolved *models.ResolvedSchedule) (int, error) {
	emp, err := m.employees.FindByID(ctx, tenantID, employeeID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "lookup employee")
	}
	if emp == nil || !emp.IsEligibleForOvertime {
		return 0, nil
	}

	plannedMinutes := 0
	if resolved != nil {
		plannedMinutes = resolved.PlannedMinutes(plannedBreak)
	}

	normalMinutes, holidayMinutes, err := m.splitAtHoliday(ctx, tenantID, in, out, workedMinutes)
	if err != nil {
		return 0, err
	}

	overtime := normalMinutes - float64(plannedMinutes)
	if overtime < 0 {
		overtime = 0
	}

	if holidayMinutes > 0 {
		switch {
		case !policy.HolidayOvertimeEnabled, policy.HolidayOvertimeAsNormalHours:
			overtime += holidayMinutes
		default:
			overtime += holidayMinutes * policy.HolidayOvertimeRate
		}
	}

	return RoundOvertime(int(math.Round(overtime)), policy.OvertimeRoundingMinutes), nil
}

// splitAtHoliday allocates worked minutes to normal vs holiday time. A
// session fully inside a holiday is all holiday time; one crossing midnight
// into or out of a holiday is split proportionally by elapsed share, break
// allocation included.
func (m *MetricsCalculator) splitAtHoliday(ctx context.Context, tenantID string, in, out time.Time, workedMinutes float64) (normal, holiday float64, err error) {
	inDay := models.DateOnly(in)
	outDay := models.DateOnly(out)

	inHoliday, err := m.holidays.FindByDate(ctx, tenantID, inDay)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "lookup holiday")
	}
	if inDay.Equal(outDay) {
		if inHoliday != nil {
			return 0, workedMinutes, nil
		}
		return workedMinutes, 0, nil
	}

	outHoliday, err := m.holidays.FindByDate(ctx, tenantID, outDay)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "lookup holiday")
	}

	if inHoliday == nil && outHoliday == nil {
		return workedMinutes, 0, nil
	}
	if inHoliday != nil && outHoliday != nil {
		return 0, workedMinutes, nil
	}

	total := out.Sub(in).Minutes()
	if total <= 0 {
		return workedMinutes, 0, nil
	}
	beforeMidnight := outDay.Sub(in).Minutes() / total
	if inHoliday != nil {
		return workedMinutes * (1 - beforeMidnight), workedMinutes * beforeMidnight, nil
	}
	return workedMinutes * beforeMidnight, workedMinutes * (1 - beforeMidnight), nil
}

// RoundOvertime rounds minutes to the nearest multiple of the granularity
// using integer arithmetic, ties away from zero. Rounding an already-rounded
// value is a no-op.
func RoundOvertime(minutes, granularity int) int {
	if granularity <= 0 {
		return minutes
	}
	if minutes < 0 {
		return -RoundOvertime(-minutes, granularity)
	}
	return ((minutes + granularity/2) / granularity) * granularity
}

func firstInBefore(records []models.AttendanceRecord, before time.Time) *models.AttendanceRecord {
	for i := range records {
		if records[i].Type == models.PunchIn && records[i].Timestamp.Before(before) {
			return &records[i]
		}
	}
	return nil
}
