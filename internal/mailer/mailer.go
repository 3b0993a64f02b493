// Package mailer delivers best-effort transactional email through one of
// two backends: SendGrid when an API key is configured, plain SMTP
// otherwise. With neither configured, messages are logged and dropped.
package mailer

import (
	"context"

	"go.uber.org/zap"

	"github.com/tunewell/studio-server/internal/config"
)

type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Mailer is any service that can send a single email message.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// New picks a backend from config. SendGrid wins when both are configured.
func New(cfg *config.Config, logger *zap.Logger) Mailer {
	switch {
	case cfg.SendgridAPIKey != "":
		logger.Info("Using SendGrid mail backend")
		return NewSendgrid(cfg.SendgridAPIKey, cfg.FromEmail)
	case cfg.SMTPHost != "":
		logger.Info("Using SMTP mail backend", zap.String("host", cfg.SMTPHost))
		return NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.FromEmail)
	default:
		logger.Warn("No mail backend configured, emails will be logged only")
		return NewConsole(logger)
	}
}
