package jobs

import (
	"context"
	"fmt"
	"math"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

// LateNotificationJob mails managers about employees who clocked in past the
// notification threshold. Runs every few minutes; the dedup log keeps it to
// one mail per employee-shift-day.
type LateNotificationJob struct {
	*Sweeper
}

// NewLateNotificationJob builds the job.
func NewLateNotificationJob(sweeper *Sweeper) *LateNotificationJob {
	return &LateNotificationJob{Sweeper: sweeper}
}

// Name identifies the job in queue payloads and logs.
func (j *LateNotificationJob) Name() string { return "late-notification" }

// Run sweeps all tenants once.
func (j *LateNotificationJob) Run(ctx context.Context) error {
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
			lateMinutes := firstIn.Timestamp.Sub(resolved.ExpectedStart(today)).Minutes()
			if lateMinutes <= float64(policy.LateNotificationThresholdMin) {
				continue
			}

			emp, err := j.employees.FindByID(ctx, tenant.ID, sched.EmployeeID)
			if err != nil || emp == nil {
				continue
			}
			_, err = j.notify(ctx, tenant, *emp, today, models.NotifyLate, sched.Shift.StartTime, map[string]string{
				"actualIn":    firstIn.Timestamp.UTC().Format("15:04"),
				"lateMinutes": fmt.Sprintf("%d", int(math.Round(lateMinutes))),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func firstOfType(records []models.AttendanceRecord, t models.PunchType) *models.AttendanceRecord {
	for i := range records {
		if records[i].Type == t {
			return &records[i]
		}
	}
	return nil
}

func resolvedFromSchedule(sched models.Schedule) models.ResolvedSchedule {
	return models.ResolvedSchedule{
		Source:          models.SourcePublishedSchedule,
		ScheduleID:      sched.ID,
		Status:          sched.Status,
		Date:            models.DateOnly(sched.Date),
		Shift:           *sched.Shift,
		CustomStartTime: sched.CustomStartTime,
		CustomEndTime:   sched.CustomEndTime,
	}
}
