package jobs

import (
	"context"
	"time"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

// AbsenceNotificationJob flags employees with a published shift and no
// attendance at all once the detection buffer past shift start has elapsed.
// Night shifts are skipped; their absence only becomes detectable tomorrow.
type AbsenceNotificationJob struct {
	*Sweeper
}

// NewAbsenceNotificationJob builds the job.
func NewAbsenceNotificationJob(sweeper *Sweeper) *AbsenceNotificationJob {
	return &AbsenceNotificationJob{Sweeper: sweeper}
}

// Name identifies the job in queue payloads and logs.
func (j *AbsenceNotificationJob) Name() string { return "absence-notification" }

// Run sweeps all tenants once.
func (j *AbsenceNotificationJob) Run(ctx context.Context) error {
	return j.forEachTenant(ctx, j.Name(), func(ctx context.Context, tenant models.Tenant) error {
		now := j.now()
		today := models.DateOnly(now)

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
			if sched.Shift.IsNight() {
				continue
			}
			skip, err := j.excluded(ctx, tenant.ID, sched.EmployeeID, today)
			if err != nil || skip {
				continue
			}

			resolved := resolvedFromSchedule(sched)
			deadline := resolved.ExpectedStart(today).Add(time.Duration(policy.AbsenceDetectionBufferMin) * time.Minute)
			if now.Before(deadline) {
				continue
			}

			records, err := j.records.FindByEmployeeAndDay(ctx, tenant.ID, sched.EmployeeID, today)
			if err != nil {
				return err
			}
			if len(records) > 0 {
				continue
			}

			emp, err := j.employees.FindByID(ctx, tenant.ID, sched.EmployeeID)
			if err != nil || emp == nil {
				continue
			}
			if _, err := j.notify(ctx, tenant, *emp, today, models.NotifyAbsence, sched.Shift.StartTime, map[string]string{}); err != nil {
				return err
			}
		}
		return nil
	})
}
