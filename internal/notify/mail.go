package notify

import (
	"errors"
	"fmt"
	"net/smtp"
	"strconv"

	"calagent/internal/config"
	"calagent/internal/model"
)

// Mailer sends a single reminder for one event. The notifier only depends
// on this interface so tests can substitute a fake.
type Mailer interface {
	Send(ev model.Event) error
}

// SMTPMailer delivers reminders over a plain SMTP submission session:
// one session per message, STARTTLS on the submission port, username and
// password auth.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

// NewSMTPMailer builds a mailer from the config SMTP block.
func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers one reminder mail for ev. The message is plaintext with
// subject "Reminder: {title}". Blocking, no retry; the caller decides what
// a failure means.
func (m *SMTPMailer) Send(ev model.Event) error {
	if m.cfg.Host == "" {
		return errors.New("smtp host is not configured")
	}
	if m.cfg.From == "" || m.cfg.To == "" {
		return errors.New("smtp sender/recipient is not configured")
	}

	addr := m.cfg.Host + ":" + strconv.Itoa(m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	return smtp.SendMail(addr, auth, m.cfg.From, []string{m.cfg.To}, buildMessage(m.cfg.From, m.cfg.To, ev))
}

// buildMessage renders the full RFC 5322 payload for one reminder.
func buildMessage(from, to string, ev model.Event) []byte {
	desc := ev.Description
	if desc == "" {
		desc = "No description"
	}

	body := fmt.Sprintf(
		"Event Reminder:\r\nTitle: %s\r\nDate: %s\r\nTime: %s\r\nDescription: %s\r\n",
		ev.Title, ev.Date, ev.Time, desc,
	)

	return []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: Reminder: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		from, to, ev.Title, body,
	))
}
