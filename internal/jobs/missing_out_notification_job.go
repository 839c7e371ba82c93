package jobs

import (
	"context"
	"time"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

// MissingOutNotificationJob mails managers about yesterday's sessions that
// were never closed. Night shifts get until noon today before being flagged.
type MissingOutNotificationJob struct {
	*Sweeper
}

// NewMissingOutNotificationJob builds the job.
func NewMissingOutNotificationJob(sweeper *Sweeper) *MissingOutNotificationJob {
	return &MissingOutNotificationJob{Sweeper: sweeper}
}

// Name identifies the job in queue payloads and logs.
func (j *MissingOutNotificationJob) Name() string { return "missing-out-notification" }

// Run sweeps all tenants once.
func (j *MissingOutNotificationJob) Run(ctx context.Context) error {
	return j.forEachTenant(ctx, j.Name(), func(ctx context.Context, tenant models.Tenant) error {
		now := j.now()
		yesterday := models.DateOnly(now).AddDate(0, 0, -1)

		schedules, err := j.schedules.ListPublishedForDate(ctx, tenant.ID, yesterday)
		if err != nil {
			return err
		}

		for _, sched := range schedules {
			if sched.SuspendedByID != nil || sched.Shift == nil {
				continue
			}
			if sched.Shift.IsNight() {
				noon := models.DateOnly(now).Add(12 * time.Hour)
				if now.Before(noon) {
					continue
				}
			}
			skip, err := j.excluded(ctx, tenant.ID, sched.EmployeeID, yesterday)
			if err != nil || skip {
				continue
			}

			records, err := j.records.FindByEmployeeAndDay(ctx, tenant.ID, sched.EmployeeID, yesterday)
			if err != nil {
				return err
			}
			openIn := trailingUnmatchedIn(records)
			if openIn == nil {
				continue
			}
			// Night sessions may close on today's records.
			if sched.Shift.IsNight() {
				todayRecords, err := j.records.FindByEmployeeAndDay(ctx, tenant.ID, sched.EmployeeID, models.DateOnly(now))
				if err != nil {
					return err
				}
				if firstOfType(todayRecords, models.PunchOut) != nil {
					continue
				}
			}

			emp, err := j.employees.FindByID(ctx, tenant.ID, sched.EmployeeID)
			if err != nil || emp == nil {
				continue
			}
			_, err = j.notify(ctx, tenant, *emp, yesterday, models.NotifyMissingOut, sched.Shift.StartTime, map[string]string{
				"actualIn": openIn.Timestamp.UTC().Format("15:04"),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func trailingUnmatchedIn(records []models.AttendanceRecord) *models.AttendanceRecord {
	for i := len(records) - 1; i >= 0; i-- {
		switch records[i].Type {
		case models.PunchOut:
			return nil
		case models.PunchIn:
			return &records[i]
		}
	}
	return nil
}
