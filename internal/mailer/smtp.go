package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

type smtpMailer struct {
	addr string
	auth smtp.Auth
	from string
}

var _ Mailer = (*smtpMailer)(nil)

func NewSMTP(host string, port int, user, pass, fromEmail string) Mailer {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}
	return &smtpMailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		from: fromEmail,
	}
}

func (m *smtpMailer) Send(ctx context.Context, msg *Message) error {
	body := msg.Text
	contentType := "text/plain; charset=UTF-8"
	if msg.HTML != "" {
		body = msg.HTML
		contentType = "text/html; charset=UTF-8"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	fmt.Fprintf(&b, "\r\n%s\r\n", body)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
