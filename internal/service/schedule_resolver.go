package service

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/timegrid-hq/timegrid-api/internal/models"
	appErrors "github.com/timegrid-hq/timegrid-api/pkg/errors"
)

type scheduleRepository interface {
	FindByEmployeeAndDate(ctx context.Context, tenantID, employeeID string, date time.Time, status models.ScheduleStatus) (*models.Schedule, error)
	FindAnyByEmployeeAndDate(ctx context.Context, tenantID, employeeID string, date time.Time) (*models.Schedule, error)
}

type employeeReader interface {
	FindByID(ctx context.Context, tenantID, employeeID string) (*models.Employee, error)
}

// ScheduleResolver produces the authoritative work-time window for an
// employee-date, falling back from published schedule to previous-day
// night-shift carry-over to the employee's standing shift.
type ScheduleResolver struct {
	schedules scheduleRepository
	employees employeeReader
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduleResolver builds a resolver.
func NewScheduleResolver(schedules scheduleRepository, employees employeeReader, logger *zap.Logger) *ScheduleResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleResolver{schedules: schedules, employees: employees, logger: logger, now: time.Now}
}

// Resolve returns the resolved schedule for the date, or nil when no temporal
// expectation exists for the employee. First match wins:
// published exact-date schedule, previous-day night carry-over (before 14:00
// local), then the employee's default shift as a virtual schedule.
func (r *ScheduleResolver) Resolve(ctx context.Context, tenantID, employeeID string, date time.Time) (*models.ResolvedSchedule, error) {
	day := models.DateOnly(date)

	sched, err := r.schedules.FindByEmployeeAndDate(ctx, tenantID, employeeID, day, models.SchedulePublished)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "lookup schedule")
	}
	if sched != nil && sched.Shift != nil {
		return &models.ResolvedSchedule{
			Source:          models.SourcePublishedSchedule,
			ScheduleID:      sched.ID,
			Status:          sched.Status,
			Date:            day,
			Shift:           *sched.Shift,
			CustomStartTime: sched.CustomStartTime,
			CustomEndTime:   sched.CustomEndTime,
		}, nil
	}

	// An OUT before 14:00 most likely closes last night's shift.
	if r.now().Hour() < 14 {
		prevDay := day.AddDate(0, 0, -1)
		prev, err := r.schedules.FindByEmployeeAndDate(ctx, tenantID, employeeID, prevDay, models.SchedulePublished)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "lookup previous-day schedule")
		}
		if prev != nil && prev.Shift != nil && prev.Shift.IsNight() {
			return &models.ResolvedSchedule{
				Source:          models.SourcePreviousNight,
				ScheduleID:      prev.ID,
				Status:          prev.Status,
				Date:            prevDay,
				Shift:           *prev.Shift,
				CustomStartTime: prev.CustomStartTime,
				CustomEndTime:   prev.CustomEndTime,
			}, nil
		}
	}

	emp, err := r.employees.FindByID(ctx, tenantID, employeeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "lookup employee")
	}
	if emp != nil && emp.CurrentShift != nil {
		return &models.ResolvedSchedule{
			Source: models.SourceDefaultShift,
			Status: models.SchedulePublished,
			Date:   day,
			Shift:  *emp.CurrentShift,
		}, nil
	}

	return nil, nil
}

// ResolveUnpublished looks for a schedule of any status on the date. The
// classifier uses it to tell "no schedule at all" apart from "schedule exists
// administratively but is not published".
func (r *ScheduleResolver) ResolveUnpublished(ctx context.Context, tenantID, employeeID string, date time.Time) (*models.Schedule, error) {
	sched, err := r.schedules.FindAnyByEmployeeAndDate(ctx, tenantID, employeeID, models.DateOnly(date))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "lookup schedule any status")
	}
	return sched, nil
}
