package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendgridMailer struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

var _ Mailer = (*sendgridMailer)(nil)

func NewSendgrid(apiKey, fromEmail string) Mailer {
	return &sendgridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail("", fromEmail),
	}
}

func (m *sendgridMailer) Send(ctx context.Context, msg *Message) error {
	text := msg.Text
	if text == "" {
		text = " "
	}
	html := msg.HTML
	if html == "" {
		html = "<p>" + text + "</p>"
	}

	mail := sgmail.NewSingleEmail(m.from, msg.Subject, sgmail.NewEmail(msg.ToName, msg.To), text, html)

	resp, err := m.client.SendWithContext(ctx, mail)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
