package jobs

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

type tenantLister interface {
	ListActive(ctx context.Context) ([]models.Tenant, error)
}

type scheduleLister interface {
	ListPublishedForDate(ctx context.Context, tenantID string, date time.Time) ([]models.Schedule, error)
}

type employeeLookup interface {
	FindByID(ctx context.Context, tenantID, employeeID string) (*models.Employee, error)
}

type leaveChecker interface {
	FindCovering(ctx context.Context, tenantID, employeeID string, date time.Time) (*models.Leave, error)
}

type policyLookup interface {
	PolicyFor(ctx context.Context, tenantID string) (models.TenantPolicy, error)
}

type attendanceReader interface {
	FindByEmployeeAndDay(ctx context.Context, tenantID, employeeID string, day time.Time) ([]models.AttendanceRecord, error)
}

type notificationLogRepo interface {
	Exists(ctx context.Context, tenantID, employeeID string, sessionDate time.Time, kind models.NotificationKind, shiftStart string) (bool, error)
	Create(ctx context.Context, log models.NotificationLog) error
}

type templateRepo interface {
	FindActive(ctx context.Context, tenantID string, kind models.NotificationKind) (*models.EmailTemplate, error)
	EmailConfig(ctx context.Context, tenantID string) (*models.EmailConfig, error)
}

// Sweeper carries the collaborators every notification sweep shares: tenant
// iteration, exclusion checks, template rendering, dedup and delivery.
type Sweeper struct {
	tenants   tenantLister
	schedules scheduleLister
	employees employeeLookup
	leaves    leaveChecker
	policies  policyLookup
	records   attendanceReader
	logs      notificationLogRepo
	templates templateRepo
	mailer    Mailer
	logger    *zap.Logger
	now       func() time.Time
}

// NewSweeper builds the shared sweep infrastructure.
func NewSweeper(
	tenants tenantLister,
	schedules scheduleLister,
	employees employeeLookup,
	leaves leaveChecker,
	policies policyLookup,
	records attendanceReader,
	logs notificationLogRepo,
	templates templateRepo,
	mailer Mailer,
	logger *zap.Logger,
) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		tenants:   tenants,
		schedules: schedules,
		employees: employees,
		leaves:    leaves,
		policies:  policies,
		records:   records,
		logs:      logs,
		templates: templates,
		mailer:    mailer,
		logger:    logger,
		now:       time.Now,
	}
}

// forEachTenant iterates active tenants; one tenant's failure is logged and
// the sweep continues with the rest.
func (s *Sweeper) forEachTenant(ctx context.Context, sweep string, fn func(ctx context.Context, tenant models.Tenant) error) error {
	tenants, err := s.tenants.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, tenant := range tenants {
		if err := fn(ctx, tenant); err != nil {
			s.logger.Error("tenant sweep failed",
				zap.String("sweep", sweep),
				zap.String("tenant_id", tenant.ID),
				zap.Error(err))
		}
	}
	return nil
}

// excluded reports whether the employee's day is covered by any suppressing
// leave, remote and mission leave included.
func (s *Sweeper) excluded(ctx context.Context, tenantID, employeeID string, date time.Time) (bool, error) {
	leave, err := s.leaves.FindCovering(ctx, tenantID, employeeID, date)
	if err != nil {
		return false, err
	}
	return leave != nil && leave.Status.Suppressing(), nil
}

var templateKeyPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// renderTemplate substitutes {{key}} placeholders from vars.
func renderTemplate(text string, vars map[string]string) string {
	return templateKeyPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := templateKeyPattern.FindStringSubmatch(match)[1]
		if value, ok := vars[key]; ok {
			return value
		}
		return match
	})
}

// notify performs the dedup-check, template-render, send, log-create cycle
// for one employee condition. Returns true when a mail went out.
func (s *Sweeper) notify(ctx context.Context, tenant models.Tenant, employee models.Employee, sessionDate time.Time, kind models.NotificationKind, shiftStart string, vars map[string]string) (bool, error) {
	exists, err := s.logs.Exists(ctx, tenant.ID, employee.ID, sessionDate, kind, shiftStart)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	config, err := s.templates.EmailConfig(ctx, tenant.ID)
	if err != nil {
		return false, err
	}
	if config == nil || !config.KindEnabled(kind) {
		return false, nil
	}

	tmpl, err := s.templates.FindActive(ctx, tenant.ID, kind)
	if err != nil {
		return false, err
	}
	if tmpl == nil {
		return false, nil
	}

	if employee.ManagerID == nil {
		return false, nil
	}
	manager, err := s.employees.FindByID(ctx, tenant.ID, *employee.ManagerID)
	if err != nil {
		return false, err
	}
	if manager == nil || manager.Email == nil {
		return false, nil
	}
	vars["managerName"] = manager.FullName()
	vars["employeeName"] = employee.FullName()
	vars["sessionDate"] = sessionDate.Format("2006-01-02")
	vars["shiftStart"] = shiftStart

	mail := models.Mail{
		To:         *manager.Email,
		Subject:    renderTemplate(tmpl.Subject, vars),
		HTML:       renderTemplate(tmpl.Body, vars),
		Kind:       kind,
		EmployeeID: &employee.ID,
		ManagerID:  &manager.ID,
		TemplateID: &tmpl.ID,
	}
	if err := s.mailer.Send(ctx, mail); err != nil {
		return false, err
	}

	return true, s.logs.Create(ctx, models.NotificationLog{
		ID:          uuid.NewString(),
		TenantID:    tenant.ID,
		EmployeeID:  employee.ID,
		SessionDate: sessionDate,
		Kind:        kind,
		ShiftStart:  shiftStart,
		SentAt:      s.now(),
	})
}
