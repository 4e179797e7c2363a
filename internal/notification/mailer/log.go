package mailer

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"go.uber.org/zap"
)

// LogMailer writes emails to the log. Used when no broker is configured.
type LogMailer struct {
	logger logger.ZapLogger
}

func NewLogMailer(log logger.ZapLogger) *LogMailer {
	return &LogMailer{logger: log}
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("Email not sent, no mail transport configured",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

// StaticRecipients sends every merchant's alerts to one address. The
// merchant settings live in the business service.
type StaticRecipients struct {
	Email string
}

func (r StaticRecipients) NotificationEmail(_ context.Context, _ string) (string, error) {
	return r.Email, nil
}
