package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Severity selects how a toast is rendered.
type Severity string

const (
	SeverityInfo    Severity = "default"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "destructive"
)

// Toast is a user-facing, fire-and-forget notification.
type Toast struct {
	// UserID is the account the toast concerns. Failures before an account is
	// known leave it empty.
	UserID      string    `json:"user_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notifier delivers toasts to the user.
type Notifier interface {
	Notify(ctx context.Context, toast Toast) error
}

// LoggerNotifier writes toasts to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Notify logs the toast. Error toasts are logged at warn level.
func (n *LoggerNotifier) Notify(ctx context.Context, toast Toast) error {
	if n == nil || n.logger == nil {
		return nil
	}
	level := slog.LevelInfo
	if toast.Severity == SeverityError {
		level = slog.LevelWarn
	}
	n.logger.Log(ctx, level, "notification",
		slog.String("title", toast.Title),
		slog.String("description", toast.Description),
		slog.String("severity", string(toast.Severity)),
		slog.String("user_id", toast.UserID),
	)
	return nil
}

// Multi fans a toast out to every notifier and joins their errors.
type Multi []Notifier

// Notify delivers to all notifiers even when some fail.
func (m Multi) Notify(ctx context.Context, toast Toast) error {
	if toast.CreatedAt.IsZero() {
		toast.CreatedAt = time.Now().UTC()
	}
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, toast); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
