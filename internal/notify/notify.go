// Package notify delivers two-factor codes to users.
package notify

import (
	"context"

	"auth-service/internal/logging"
	"auth-service/internal/user/domain"
)

// Notifier sends a message to a user. Any error means the message was not delivered.
type Notifier interface {
	Send(ctx context.Context, recipient domain.Email, subject, body string) error
}

// LogNotifier writes messages to the logger instead of sending them. For development only;
// config refuses to start production without a real provider.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, recipient domain.Email, subject, body string) error {
	n.logger.Info(ctx, "email not sent (log notifier)", "recipient", recipient.String(), "subject", subject, "body", body)
	return nil
}
