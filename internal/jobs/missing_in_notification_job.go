package jobs

import (
	"context"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

// MissingInNotificationJob mails managers when a scheduled employee has
// activity today but never clocked in.
type MissingInNotificationJob struct {
	*Sweeper
}

// NewMissingInNotificationJob builds the job.
func NewMissingInNotificationJob(sweeper *Sweeper) *MissingInNotificationJob {
	return &MissingInNotificationJob{Sweeper: sweeper}
}

// Name identifies the job in queue payloads and logs.
func (j *MissingInNotificationJob) Name() string { return "missing-in-notification" }

// Run sweeps all tenants once.
func (j *MissingInNotificationJob) Run(ctx context.Context) error {
	return j.forEachTenant(ctx, j.Name(), func(ctx context.Context, tenant models.Tenant) error {
		today := models.DateOnly(j.now())

		schedules, err := j.schedules.ListPublishedForDate(ctx, tenant.ID, today)
		if err != nil {
			return err
		}

		for _, sched := range schedules {
			if sched.SuspendedByID != nil || sched.Shift == nil {
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
			if len(records) == 0 || firstOfType(records, models.PunchIn) != nil {
				continue
			}

			emp, err := j.employees.FindByID(ctx, tenant.ID, sched.EmployeeID)
			if err != nil || emp == nil {
				continue
			}
			_, err = j.notify(ctx, tenant, *emp, today, models.NotifyMissingIn, sched.Shift.StartTime, map[string]string{
				"firstEvent": records[0].Timestamp.UTC().Format("15:04"),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
