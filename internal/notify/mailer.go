package notify

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

type MailerConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	OperatorEmail string
	StoreName     string
}

// dialer is the part of gomail.Dialer the mailer uses.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends rendered notifications over SMTP.
type Mailer struct {
	cfg    MailerConfig
	dialer dialer
}

func NewMailer(cfg MailerConfig) *Mailer {
	return &Mailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// Send renders n and makes exactly one SMTP attempt.
func (m *Mailer) Send(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	to, err := m.recipient(n)
	if err != nil {
		return err
	}

	subject, body, err := Render(m.cfg.StoreName, n)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.From, m.cfg.StoreName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send %s to %s: %w", n.Kind, to, err)
	}
	return nil
}

func (m *Mailer) recipient(n Notification) (string, error) {
	if n.Kind == KindAdminNotification {
		if m.cfg.OperatorEmail == "" {
			return "", errors.New("operator email not configured")
		}
		return m.cfg.OperatorEmail, nil
	}
	return n.Data.CustomerEmail, nil
}

// NoopSender stands in when SMTP is not configured. It logs through Deliver
// like a real sender but never leaves the process.
type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, n Notification) error {
	return errors.New("mail transport disabled")
}
