package services

import (
	"errors"
	"fmt"
	"net/smtp"
)

// SMTPConfig carries the outbound mail settings. An empty Host disables
// email; the notification endpoint then reports a configuration error.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	To       string
}

// EmailNotifier sends the dashboard's notification mails (new task alerts,
// access requests) to the configured team address.
type EmailNotifier struct {
	config SMTPConfig
}

func NewEmailNotifier(config SMTPConfig) *EmailNotifier {
	return &EmailNotifier{config: config}
}

// Configured reports whether outbound mail can be attempted at all.
func (n *EmailNotifier) Configured() bool {
	c := n.config
	return c.Host != "" && c.Port != "" && c.Username != "" && c.Password != "" && c.To != ""
}

// Send delivers one plain-text notification. Subject and message must both
// be non-empty.
func (n *EmailNotifier) Send(subject, message string) error {
	if subject == "" || message == "" {
		return errors.New("subject and message are required")
	}
	if !n.Configured() {
		return errors.New("SMTP not fully configured")
	}

	auth := smtp.PlainAuth("", n.config.Username, n.config.Password, n.config.Host)

	from := n.config.From
	if from == "" {
		from = n.config.Username
	}

	body := fmt.Sprintf("From: %s\nTo: %s\nSubject: %s\n\n%s", from, n.config.To, subject, message)

	addr := fmt.Sprintf("%s:%s", n.config.Host, n.config.Port)
	if err := smtp.SendMail(addr, auth, from, []string{n.config.To}, []byte(body)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
