package jobs

import (
	"context"
	"fmt"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

// OvertimePendingNotificationJob reminds managers about overtime blocks
// still waiting for a decision. The overtime id doubles as the dedup
// discriminator so each block triggers exactly one mail.
type OvertimePendingNotificationJob struct {
	*Sweeper
	overtimes overtimeRepo
}

// NewOvertimePendingNotificationJob builds the job.
func NewOvertimePendingNotificationJob(sweeper *Sweeper, overtimes overtimeRepo) *OvertimePendingNotificationJob {
	return &OvertimePendingNotificationJob{Sweeper: sweeper, overtimes: overtimes}
}

// Name identifies the job in queue payloads and logs.
func (j *OvertimePendingNotificationJob) Name() string { return "overtime-pending-notification" }

// Run sweeps all tenants once.
func (j *OvertimePendingNotificationJob) Run(ctx context.Context) error {
	return j.forEachTenant(ctx, j.Name(), func(ctx context.Context, tenant models.Tenant) error {
		since := models.DateOnly(j.now()).AddDate(0, 0, -7)
		pending, err := j.overtimes.ListPendingSince(ctx, tenant.ID, since)
		if err != nil {
			return err
		}

		for _, overtime := range pending {
			emp, err := j.employees.FindByID(ctx, tenant.ID, overtime.EmployeeID)
			if err != nil || emp == nil {
				continue
			}
			_, err = j.notify(ctx, tenant, *emp, overtime.Date, models.NotifyOvertimePending, overtime.ID, map[string]string{
				"overtimeMinutes": fmt.Sprintf("%d", overtime.Minutes),
				"overtimeType":    string(overtime.Type),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
