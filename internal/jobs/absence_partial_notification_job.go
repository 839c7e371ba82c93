package jobs

import (
	"context"
	"fmt"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

// AbsencePartialNotificationJob mails managers when an employee arrived so
// late that the day counts as a partial absence.
type AbsencePartialNotificationJob struct {
	*Sweeper
}

// NewAbsencePartialNotificationJob builds the job.
func NewAbsencePartialNotificationJob(sweeper *Sweeper) *AbsencePartialNotificationJob {
	return &AbsencePartialNotificationJob{Sweeper: sweeper}
}

// Name identifies the job in queue payloads and logs.
func (j *AbsencePartialNotificationJob) Name() string { return "absence-partial-notification" }

// Run sweeps all tenants once.
func (j *AbsencePartialNotificationJob) Run(ctx context.Context) error {
	return j.forEachTenant(ctx, j.Name(), func(ctx context.Context, tenant models.Tenant) error {
		today := models.DateOnly(j.now())

		policy, err := j.policies.PolicyFor(ctx, tenant.ID)
		if err != nil {
			return err
		}
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
			firstIn := firstOfType(records, models.PunchIn)
			if firstIn == nil {
				continue
			}

			resolved := resolvedFromSchedule(sched)
			lateHours := firstIn.Timestamp.Sub(resolved.ExpectedStart(today)).Hours()
			if lateHours < policy.AbsencePartialThresholdHrs {
				continue
			}

			emp, err := j.employees.FindByID(ctx, tenant.ID, sched.EmployeeID)
			if err != nil || emp == nil {
				continue
			}
			_, err = j.notify(ctx, tenant, *emp, today, models.NotifyAbsencePartial, sched.Shift.StartTime, map[string]string{
				"actualIn":  firstIn.Timestamp.UTC().Format("15:04"),
				"lateHours": fmt.Sprintf("%.1f", lateHours),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
