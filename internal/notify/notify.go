package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Message is an outbound email.
type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// Mailer delivers email notifications. Implementations are thin transports;
// delivery failures are surfaced to the caller, which treats them as
// best-effort.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMSSender delivers a text message to a mobile number. The production
// gateway (SMS/WhatsApp provider) is an external collaborator behind this
// contract.
type SMSSender interface {
	Send(ctx context.Context, to, text string) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	host string
	port int
	user string
	pass string
	from string
}

// NewSMTPMailer constructs the mailer.
func NewSMTPMailer(host string, port int, user, pass, from string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, user: user, pass: pass, from: from}
}

// Send delivers the message.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("mail requires at least one recipient")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}
	if err := smtp.SendMail(addr, auth, m.from, msg.To, []byte(b.String())); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogMailer records outbound mail in the log instead of delivering it. Used
// when notifications are disabled and in tests.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer constructs the mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Sugar().Infow("mail (log only)", "to", msg.To, "subject", msg.Subject)
	return nil
}

// LogSMS records outbound texts in the log. The real gateway call replaces
// this in production wiring.
type LogSMS struct {
	logger *zap.Logger
}

// NewLogSMS constructs the sender.
func NewLogSMS(logger *zap.Logger) *LogSMS {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSMS{logger: logger}
}

// Send logs the text.
func (s *LogSMS) Send(_ context.Context, to, text string) error {
	s.logger.Sugar().Infow("sms (log only)", "to", to, "len", len(text))
	return nil
}
