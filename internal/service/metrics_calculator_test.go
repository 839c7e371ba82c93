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

type calculatorFixture struct {
	records   *stubAttendanceRepo
	schedules *stubScheduleRepo
	employees *stubEmployeeRepo
	holidays  *stubHolidayRepo
	policies  *stubPolicyRepo
	calc      *MetricsCalculator
}

func newCalculatorFixture(now time.Time) *calculatorFixture {
	f := &calculatorFixture{
		records:   &stubAttendanceRepo{days: map[string][]models.AttendanceRecord{}},
		schedules: &stubScheduleRepo{published: map[string]*models.Schedule{}, any: map[string]*models.Schedule{}},
		employees: &stubEmployeeRepo{employee: &models.Employee{ID: "emp-1", IsEligibleForOvertime: true}},
		holidays:  &stubHolidayRepo{},
		policies:  &stubPolicyRepo{policy: models.DefaultTenantPolicy("tenant-1")},
	}
	resolver := NewScheduleResolver(f.schedules, f.employees, zap.NewNop())
	resolver.now = func() time.Time { return now }
	sessions := NewSessionReconstructor(f.records, zap.NewNop())
	sessions.now = func() time.Time { return now }
	f.calc = NewMetricsCalculator(f.employees, f.holidays, f.policies, resolver, sessions, zap.NewNop())
	return f
}

func (f *calculatorFixture) publish(day time.Time, shift *models.Shift) {
	key := models.DateOnly(day).Format("2006-01-02")
	f.schedules.published[key] = &models.Schedule{
		ID:     "sched-" + key,
		Date:   models.DateOnly(day),
		Status: models.SchedulePublished,
		Shift:  shift,
	}
}

func (f *calculatorFixture) addRecord(rec models.AttendanceRecord) {
	key := models.DateOnly(rec.Timestamp).Format("2006-01-02")
	f.records.days[key] = append(f.records.days[key], rec)
}

func TestComputeLateMinutes(t *testing.T) {
	f := newCalculatorFixture(monday.Add(10 * time.Hour))
	f.publish(monday, dayShift())

	metrics, err := f.calc.Compute(context.Background(), "tenant-1", "emp-1",
		monday.Add(9*time.Hour+25*time.Minute), models.PunchIn)
	require.NoError(t, err)
	require.NotNil(t, metrics.LateMinutes)
	assert.Equal(t, 15, *metrics.LateMinutes)
	assert.Nil(t, metrics.HoursWorked)
}

func TestComputeOnTimeWithinTolerance(t *testing.T) {
	f := newCalculatorFixture(monday.Add(10 * time.Hour))
	f.publish(monday, dayShift())

	metrics, err := f.calc.Compute(context.Background(), "tenant-1", "emp-1",
		monday.Add(9*time.Hour+5*time.Minute), models.PunchIn)
	require.NoError(t, err)
	require.NotNil(t, metrics.LateMinutes)
	assert.Equal(t, 0, *metrics.LateMinutes)
}

func TestComputeWorkedHoursAndOvertime(t *testing.T) {
	f := newCalculatorFixture(monday.Add(19*time.Hour + 5*time.Minute))
	f.publish(monday, dayShift())
	f.addRecord(models.AttendanceRecord{ID: "in-1", Timestamp: monday.Add(9 * time.Hour), Type: models.PunchIn})

	metrics, err := f.calc.Compute(context.Background(), "tenant-1", "emp-1",
		monday.Add(19*time.Hour), models.PunchOut)
	require.NoError(t, err)
	require.NotNil(t, metrics.HoursWorked)
	// 10h elapsed minus the 60 minute planned break.
	assert.InDelta(t, 9.0, *metrics.HoursWorked, 0.001)
	require.NotNil(t, metrics.OvertimeMinutes)
	assert.Equal(t, 120, *metrics.OvertimeMinutes)
	require.NotNil(t, metrics.EarlyLeaveMinutes)
	assert.Equal(t, 0, *metrics.EarlyLeaveMinutes)
}

func TestComputeEarlyLeaveMinutes(t *testing.T) {
	f := newCalculatorFixture(monday.Add(16*time.Hour + 5*time.Minute))
	f.publish(monday, dayShift())
	f.addRecord(models.AttendanceRecord{ID: "in-1", Timestamp: monday.Add(9 * time.Hour), Type: models.PunchIn})

	metrics, err := f.calc.Compute(context.Background(), "tenant-1", "emp-1",
		monday.Add(16*time.Hour), models.PunchOut)
	require.NoError(t, err)
	require.NotNil(t, metrics.EarlyLeaveMinutes)
	assert.Equal(t, 55, *metrics.EarlyLeaveMinutes)
}

func TestComputeOvertimeIneligibleEmployee(t *testing.T) {
	f := newCalculatorFixture(monday.Add(19*time.Hour + 5*time.Minute))
	f.publish(monday, dayShift())
	f.employees.employee.IsEligibleForOvertime = false
	f.addRecord(models.AttendanceRecord{ID: "in-1", Timestamp: monday.Add(9 * time.Hour), Type: models.PunchIn})

	metrics, err := f.calc.Compute(context.Background(), "tenant-1", "emp-1",
		monday.Add(19*time.Hour), models.PunchOut)
	require.NoError(t, err)
	require.NotNil(t, metrics.OvertimeMinutes)
	assert.Equal(t, 0, *metrics.OvertimeMinutes)
}

func TestComputeHolidaySessionPricedAtRate(t *testing.T) {
	f := newCalculatorFixture(monday.Add(17*time.Hour + 5*time.Minute))
	f.publish(monday, dayShift())
	f.holidays.holidays = map[string]*models.Holiday{
		monday.Format("2006-01-02"): {ID: "hol-1", Date: monday, Name: "Independence Day"},
	}
	f.addRecord(models.AttendanceRecord{ID: "in-1", Timestamp: monday.Add(9 * time.Hour), Type: models.PunchIn})

	metrics, err := f.calc.Compute(context.Background(), "tenant-1", "emp-1",
		monday.Add(17*time.Hour), models.PunchOut)
	require.NoError(t, err)
	require.NotNil(t, metrics.OvertimeMinutes)
	// 420 worked minutes, all on the holiday, at the default 2.0 rate.
	assert.Equal(t, 840, *metrics.OvertimeMinutes)
}

func TestComputeOutWithoutInOnlyEarlyLeave(t *testing.T) {
	f := newCalculatorFixture(monday.Add(17*time.Hour + 5*time.Minute))
	f.publish(monday, dayShift())

	metrics, err := f.calc.Compute(context.Background(), "tenant-1", "emp-1",
		monday.Add(17*time.Hour), models.PunchOut)
	require.NoError(t, err)
	assert.Nil(t, metrics.HoursWorked)
	assert.Nil(t, metrics.OvertimeMinutes)
	require.NotNil(t, metrics.EarlyLeaveMinutes)
	assert.Equal(t, 0, *metrics.EarlyLeaveMinutes)
}

func TestRoundOvertime(t *testing.T) {
	assert.Equal(t, 0, RoundOvertime(0, 15))
	assert.Equal(t, 0, RoundOvertime(7, 15))
	assert.Equal(t, 15, RoundOvertime(8, 15))
	assert.Equal(t, 15, RoundOvertime(22, 15))
	assert.Equal(t, 30, RoundOvertime(23, 15))
	assert.Equal(t, -15, RoundOvertime(-8, 15))
	assert.Equal(t, 37, RoundOvertime(37, 0))
}
