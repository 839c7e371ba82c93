package jobs

import (
	"context"

	"go.uber.org/zap"

	"github.com/timegrid-hq/timegrid-api/internal/models"
)

// Mailer delivers notification emails. Delivery is fire-and-forget from the
// caller's point of view; implementations own their retries and logging.
type Mailer interface {
	Send(ctx context.Context, mail models.Mail) error
}

// LogMailer is the default mailer when no SMTP relay is configured. It logs
// the outbound message so sweeps stay observable in every environment.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds a logging mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message instead of delivering it.
func (m *LogMailer) Send(_ context.Context, mail models.Mail) error {
	m.logger.Info("mail dispatched",
		zap.String("to", mail.To),
		zap.String("kind", string(mail.Kind)),
		zap.String("subject", mail.Subject))
	return nil
}
