package mailer

import (
	"context"
	"log/slog"
)

// LogMailer writes emails to the log instead of sending them
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("component", "log_mailer")}
}

func (m *LogMailer) Send(ctx context.Context, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.Info("Email sent", "to", email.To, "subject", email.Subject, "body", email.Body)
	return nil
}
