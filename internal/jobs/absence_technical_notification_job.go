package jobs

import (
	"context"
	"time"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

type allScheduleLister interface {
	ListForDate(ctx context.Context, tenantID string, date time.Time) ([]models.Schedule, error)
}

// AbsenceTechnicalNotificationJob catches employees punching against a
// schedule that exists administratively but was never published.
type AbsenceTechnicalNotificationJob struct {
	*Sweeper
	allSchedules allScheduleLister
}

// NewAbsenceTechnicalNotificationJob builds the job.
func NewAbsenceTechnicalNotificationJob(sweeper *Sweeper, allSchedules allScheduleLister) *AbsenceTechnicalNotificationJob {
	return &AbsenceTechnicalNotificationJob{Sweeper: sweeper, allSchedules: allSchedules}
}

// Name identifies the job in queue payloads and logs.
func (j *AbsenceTechnicalNotificationJob) Name() string { return "absence-technical-notification" }

// Run sweeps all tenants once.
func (j *AbsenceTechnicalNotificationJob) Run(ctx context.Context) error {
	return j.forEachTenant(ctx, j.Name(), func(ctx context.Context, tenant models.Tenant) error {
		today := models.DateOnly(j.now())

		schedules, err := j.allSchedules.ListForDate(ctx, tenant.ID, today)
		if err != nil {
			return err
		}

		for _, sched := range schedules {
			if sched.Status == models.SchedulePublished || sched.SuspendedByID != nil || sched.Shift == nil {
				continue
			}
			skip, err := j.excluded(ctx, tenant.ID, sched.EmployeeID, today)
			if err != nil || skip {
				continue
			}

			records, err := j.records.FindByEmployeeAndDay(ctx, tenant.ID, sched.EmployeeID, today)
			if err != nil {
				return err
			}
			if firstOfType(records, models.PunchIn) == nil {
				continue
			}

			emp, err := j.employees.FindByID(ctx, tenant.ID, sched.EmployeeID)
			if err != nil || emp == nil {
				continue
			}
			_, err = j.notify(ctx, tenant, *emp, today, models.NotifyAbsenceTechnical, sched.Shift.StartTime, map[string]string{
				"scheduleStatus": string(sched.Status),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
