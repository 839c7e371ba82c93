package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/timegrid-hq/timegrid-api/internal/models"
	"github.com/timegrid-hq/timegrid-api/pkg/jobs"
)

// Notifier pushes ingestion-time notifications through a worker queue so
// delivery never blocks or fails a punch.
type Notifier struct {
	queue     *jobs.Queue
	employees employeeLookup
	mailer    Mailer
	logger    *zap.Logger
}

// NewNotifier builds the notifier and its queue.
func NewNotifier(employees employeeLookup, mailer Mailer, cfg jobs.QueueConfig, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Notifier{employees: employees, mailer: mailer, logger: logger}
	n.queue = jobs.NewQueue("notifications", n.handle, cfg)
	return n
}

// Start launches the queue workers.
func (n *Notifier) Start(ctx context.Context) { n.queue.Start(ctx) }

// Stop drains the queue workers.
func (n *Notifier) Stop() { n.queue.Stop() }

type notificationPayload struct {
	record  models.AttendanceRecord
	subject string
	toManager bool
}

// NotifyAnomaly informs the employee's manager about a freshly classified
// anomaly.
func (n *Notifier) NotifyAnomaly(record models.AttendanceRecord) {
	kind := ""
	if record.AnomalyType != nil {
		kind = string(*record.AnomalyType)
	}
	n.enqueue(notificationPayload{
		record:    record,
		subject:   fmt.Sprintf("Attendance anomaly: %s", kind),
		toManager: true,
	})
}

// NotifyCorrectionPending asks the manager for a decision.
func (n *Notifier) NotifyCorrectionPending(record models.AttendanceRecord) {
	n.enqueue(notificationPayload{
		record:    record,
		subject:   "Attendance correction awaiting approval",
		toManager: true,
	})
}

// NotifyCorrectionResolved informs the employee of the outcome.
func (n *Notifier) NotifyCorrectionResolved(record models.AttendanceRecord) {
	n.enqueue(notificationPayload{
		record:  record,
		subject: "Attendance correction processed",
	})
}

func (n *Notifier) enqueue(payload notificationPayload) {
	err := n.queue.Enqueue(jobs.Job{
		ID:       uuid.NewString(),
		Type:     "notification",
		Payload:  payload,
		Enqueued: time.Now(),
	})
	if err != nil {
		n.logger.Warn("notification enqueue failed", zap.Error(err))
	}
}

func (n *Notifier) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(notificationPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	record := payload.record

	employee, err := n.employees.FindByID(ctx, record.TenantID, record.EmployeeID)
	if err != nil {
		return err
	}
	if employee == nil {
		return nil
	}

	var to *string
	var managerID *string
	if payload.toManager {
		if employee.ManagerID == nil {
			return nil
		}
		manager, err := n.employees.FindByID(ctx, record.TenantID, *employee.ManagerID)
		if err != nil {
			return err
		}
		if manager == nil || manager.Email == nil {
			return nil
		}
		to = manager.Email
		managerID = &manager.ID
	} else {
		if employee.Email == nil {
			return nil
		}
		to = employee.Email
	}

	note := ""
	if record.AnomalyNote != nil {
		note = *record.AnomalyNote
	}
	mail := models.Mail{
		To:         *to,
		Subject:    payload.subject,
		HTML:       fmt.Sprintf("<p>%s</p><p>%s on %s</p>", note, employee.FullName(), record.Timestamp.UTC().Format("2006-01-02 15:04")),
		EmployeeID: &record.EmployeeID,
		ManagerID:  managerID,
	}
	if record.AnomalyType != nil {
		mail.Kind = models.NotificationKind(*record.AnomalyType)
	}
	return n.mailer.Send(ctx, mail)
}
