package mailer

import (
	"context"

	"go.uber.org/zap"
)

// consoleMailer logs messages instead of delivering them. Used in
// development and when no transport is configured.
type consoleMailer struct {
	logger *zap.Logger
}

var _ Mailer = (*consoleMailer)(nil)

func NewConsole(logger *zap.Logger) Mailer {
	return &consoleMailer{logger: logger}
}

func (m *consoleMailer) Send(_ context.Context, msg *Message) error {
	m.logger.Info("Email (console backend)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.Text),
	)
	return nil
}
