package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

type anomalyFlagger interface {
	MarkAnomaly(ctx context.Context, tenantID, recordID string, kind models.AnomalyKind, note string) error
}

// DetectMissingOutJob flags yesterday's unclosed sessions directly on the
// attendance record so they surface in anomaly listings without waiting for
// the next punch.
type DetectMissingOutJob struct {
	*Sweeper
	flagger anomalyFlagger
}

// NewDetectMissingOutJob builds the job.
func NewDetectMissingOutJob(sweeper *Sweeper, flagger anomalyFlagger) *DetectMissingOutJob {
	return &DetectMissingOutJob{Sweeper: sweeper, flagger: flagger}
}

// Name identifies the job in queue payloads and logs.
func (j *DetectMissingOutJob) Name() string { return "detect-missing-out" }

// Run sweeps all tenants once.
func (j *DetectMissingOutJob) Run(ctx context.Context) error {
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
			if sched.Shift.IsNight() && now.Before(models.DateOnly(now).Add(12*time.Hour)) {
				continue
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
			if openIn == nil || openIn.HasAnomaly {
				continue
			}
			if sched.Shift.IsNight() {
				todayRecords, err := j.records.FindByEmployeeAndDay(ctx, tenant.ID, sched.EmployeeID, models.DateOnly(now))
				if err != nil {
					return err
				}
				if firstOfType(todayRecords, models.PunchOut) != nil {
					continue
				}
			}

			note := fmt.Sprintf("session opened at %s was never closed", openIn.Timestamp.UTC().Format("15:04"))
			if err := j.flagger.MarkAnomaly(ctx, tenant.ID, openIn.ID, models.AnomalyMissingOut, note); err != nil {
				return err
			}
		}
		return nil
	})
}
