package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/alx-travel-payments/internal/config"
)

// SMTPMailer sends email through an SMTP relay with PLAIN auth
type SMTPMailer struct {
	logger *slog.Logger
	addr   string
	auth   smtp.Auth
	from   string

	// sendMail is smtp.SendMail outside of tests
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(logger *slog.Logger, cfg config.MailerConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("mailer from address is required")
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTPMailer{
		logger:   logger.With("component", "smtp_mailer"),
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		auth:     auth,
		from:     cfg.From,
		sendMail: smtp.SendMail,
	}, nil
}

// Send delivers the email. smtp.SendMail does not accept a context, so the
// call runs in a goroutine and Send returns early when ctx is done.
func (m *SMTPMailer) Send(ctx context.Context, email Email) error {
	if strings.ContainsAny(email.To, "\r\n") {
		return fmt.Errorf("invalid recipient %q", email.To)
	}

	msg := m.buildMessage(email, time.Now())
	done := make(chan error, 1)
	go func() {
		done <- m.sendMail(m.addr, m.auth, m.from, []string{email.To}, msg)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			m.logger.Error("Failed to send email", "to", email.To, "error", err)
			return fmt.Errorf("failed to send email: %w", err)
		}
		m.logger.Info("Email sent", "to", email.To, "subject", email.Subject)
		return nil
	}
}

func (m *SMTPMailer) buildMessage(email Email, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + m.from + "\r\n")
	b.WriteString("To: " + email.To + "\r\n")
	b.WriteString("Subject: " + strings.ReplaceAll(email.Subject, "\r\n", " ") + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(email.Body, "\n", "\r\n"))
	return []byte(b.String())
}
