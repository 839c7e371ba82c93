package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

type overtimeRepo interface {
	ExistsForSource(ctx context.Context, tenantID, sourceID string) (bool, error)
	Create(ctx context.Context, overtime models.Overtime) error
	ListPendingSince(ctx context.Context, tenantID string, since time.Time) ([]models.Overtime, error)
}

type overtimeOutLister interface {
	FindOutsWithOvertime(ctx context.Context, tenantID string, day time.Time, minMinutes int) ([]models.AttendanceRecord, error)
}

type holidayChecker interface {
	FindByDate(ctx context.Context, tenantID string, date time.Time) (*models.Holiday, error)
}

// DetectOvertimeJob turns yesterday's OUT punches carrying enough overtime
// minutes into pending Overtime blocks for payroll approval.
type DetectOvertimeJob struct {
	*Sweeper
	overtimes overtimeRepo
	outs      overtimeOutLister
	holidays  holidayChecker
}

// NewDetectOvertimeJob builds the job.
func NewDetectOvertimeJob(sweeper *Sweeper, overtimes overtimeRepo, outs overtimeOutLister, holidays holidayChecker) *DetectOvertimeJob {
	return &DetectOvertimeJob{Sweeper: sweeper, overtimes: overtimes, outs: outs, holidays: holidays}
}

// Name identifies the job in queue payloads and logs.
func (j *DetectOvertimeJob) Name() string { return "detect-overtime" }

// Run sweeps all tenants once.
func (j *DetectOvertimeJob) Run(ctx context.Context) error {
	return j.forEachTenant(ctx, j.Name(), func(ctx context.Context, tenant models.Tenant) error {
		yesterday := models.DateOnly(j.now()).AddDate(0, 0, -1)

		policy, err := j.policies.PolicyFor(ctx, tenant.ID)
		if err != nil {
			return err
		}
		outs, err := j.outs.FindOutsWithOvertime(ctx, tenant.ID, yesterday, policy.OvertimeMinimumThresholdMin)
		if err != nil {
			return err
		}

		for _, out := range outs {
			emp, err := j.employees.FindByID(ctx, tenant.ID, out.EmployeeID)
			if err != nil {
				return err
			}
			if emp == nil || !emp.IsEligibleForOvertime {
				continue
			}

			exists, err := j.overtimes.ExistsForSource(ctx, tenant.ID, out.ID)
			if err != nil {
				return err
			}
			if exists {
				continue
			}

			overtimeType, err := j.overtimeType(ctx, tenant.ID, out, yesterday)
			if err != nil {
				return err
			}

			overtime := models.Overtime{
				ID:         uuid.NewString(),
				TenantID:   tenant.ID,
				EmployeeID: out.EmployeeID,
				Date:       yesterday,
				Minutes:    *out.OvertimeMinutes,
				Type:       overtimeType,
				Status:     models.OvertimePending,
				SourceID:   &out.ID,
			}
			if err := j.overtimes.Create(ctx, overtime); err != nil {
				return err
			}
		}
		return nil
	})
}

func (j *DetectOvertimeJob) overtimeType(ctx context.Context, tenantID string, out models.AttendanceRecord, day time.Time) (models.OvertimeType, error) {
	holiday, err := j.holidays.FindByDate(ctx, tenantID, day)
	if err != nil {
		return "", err
	}
	if holiday != nil {
		return models.OvertimeHoliday, nil
	}

	schedules, err := j.schedules.ListPublishedForDate(ctx, tenantID, day)
	if err != nil {
		return "", err
	}
	for _, sched := range schedules {
		if sched.EmployeeID == out.EmployeeID && sched.Shift != nil && sched.Shift.IsNight() {
			return models.OvertimeNight, nil
		}
	}
	return models.OvertimeStandard, nil
}
