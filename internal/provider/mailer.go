package provider

import (
	"context"
	"log/slog"
)

// Mailer delivers account confirmation links.
type Mailer interface {
	SendConfirmation(ctx context.Context, email, link string) error
}

// LogMailer writes confirmation links to the logger instead of sending mail.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer builds a logging mailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendConfirmation logs the confirmation link.
func (m *LogMailer) SendConfirmation(ctx context.Context, email, link string) error {
	if m == nil || m.logger == nil {
		return nil
	}
	m.logger.InfoContext(ctx, "confirmation email", slog.String("email", email), slog.String("link", link))
	return nil
}
