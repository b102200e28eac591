// Package mailer sends the transactional emails produced by the worker.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alx-travel-payments/internal/config"
)

// Email is a plain-text message to a single recipient
type Email struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers an Email
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// New returns the mailer selected by cfg.Driver
func New(logger *slog.Logger, cfg config.MailerConfig) (Mailer, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "log":
		return NewLogMailer(logger), nil
	case "smtp":
		return NewSMTPMailer(logger, cfg)
	default:
		return nil, fmt.Errorf("unknown mailer driver %q", cfg.Driver)
	}
}
