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

func newResolverFixture(now time.Time) (*ScheduleResolver, *stubScheduleRepo, *stubEmployeeRepo) {
	schedules := &stubScheduleRepo{published: map[string]*models.Schedule{}, any: map[string]*models.Schedule{}}
	employees := &stubEmployeeRepo{}
	r := NewScheduleResolver(schedules, employees, zap.NewNop())
	r.now = func() time.Time { return now }
	return r, schedules, employees
}

func TestResolvePublishedSchedule(t *testing.T) {
	r, schedules, _ := newResolverFixture(monday.Add(9 * time.Hour))
	schedules.published[monday.Format("2006-01-02")] = &models.Schedule{
		ID:     "sched-1",
		Date:   monday,
		Status: models.SchedulePublished,
		Shift:  dayShift(),
	}

	resolved, err := r.Resolve(context.Background(), "tenant-1", "emp-1", monday.Add(9*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, models.SourcePublishedSchedule, resolved.Source)
	assert.Equal(t, "sched-1", resolved.ScheduleID)
	assert.Equal(t, monday, resolved.Date)
	assert.False(t, resolved.Virtual())
}

func TestResolvePreviousNightCarryOver(t *testing.T) {
	r, schedules, _ := newResolverFixture(monday.Add(6 * time.Hour))
	sunday := monday.AddDate(0, 0, -1)
	schedules.published[sunday.Format("2006-01-02")] = &models.Schedule{
		ID:     "sched-night",
		Date:   sunday,
		Status: models.SchedulePublished,
		Shift:  nightShift(),
	}

	resolved, err := r.Resolve(context.Background(), "tenant-1", "emp-1", monday.Add(6*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, models.SourcePreviousNight, resolved.Source)
	// The carry-over anchors on yesterday so the window maths stays coherent.
	assert.Equal(t, sunday, resolved.Date)
}

func TestResolveNoCarryOverAfternoon(t *testing.T) {
	r, schedules, _ := newResolverFixture(monday.Add(15 * time.Hour))
	sunday := monday.AddDate(0, 0, -1)
	schedules.published[sunday.Format("2006-01-02")] = &models.Schedule{
		ID:     "sched-night",
		Date:   sunday,
		Status: models.SchedulePublished,
		Shift:  nightShift(),
	}

	resolved, err := r.Resolve(context.Background(), "tenant-1", "emp-1", monday.Add(15*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestResolveNoCarryOverForDayShift(t *testing.T) {
	r, schedules, _ := newResolverFixture(monday.Add(6 * time.Hour))
	sunday := monday.AddDate(0, 0, -1)
	schedules.published[sunday.Format("2006-01-02")] = &models.Schedule{
		ID:     "sched-day",
		Date:   sunday,
		Status: models.SchedulePublished,
		Shift:  dayShift(),
	}

	resolved, err := r.Resolve(context.Background(), "tenant-1", "emp-1", monday.Add(6*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestResolveDefaultShiftFallback(t *testing.T) {
	r, _, employees := newResolverFixture(monday.Add(15 * time.Hour))
	employees.employee = &models.Employee{ID: "emp-1", CurrentShift: dayShift()}

	resolved, err := r.Resolve(context.Background(), "tenant-1", "emp-1", monday.Add(9*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, models.SourceDefaultShift, resolved.Source)
	assert.True(t, resolved.Virtual())
	assert.Equal(t, models.SchedulePublished, resolved.Status)
}

func TestResolveNothing(t *testing.T) {
	r, _, _ := newResolverFixture(monday.Add(15 * time.Hour))

	resolved, err := r.Resolve(context.Background(), "tenant-1", "emp-1", monday.Add(9*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestResolveUnpublished(t *testing.T) {
	r, schedules, _ := newResolverFixture(monday.Add(15 * time.Hour))
	schedules.any[monday.Format("2006-01-02")] = &models.Schedule{
		ID:     "sched-draft",
		Date:   monday,
		Status: models.ScheduleDraft,
		Shift:  dayShift(),
	}

	sched, err := r.ResolveUnpublished(context.Background(), "tenant-1", "emp-1", monday.Add(9*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, sched)
	assert.Equal(t, models.ScheduleDraft, sched.Status)
}
