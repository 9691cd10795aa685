package notify

import (
	"context"
	"log/slog"
)

//go:generate mockgen -source=notify.go -destination=mocks/mock_notifier.go -package=mocks

// Notifier delivers OTP codes and account notices to users. Implementations
// must not log the message body at info level or above.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSMS(ctx context.Context, to, body string) error
}

// ConsoleNotifier writes deliveries to the log instead of a real gateway.
// It is the default when no provider is configured, which keeps local
// development and demos self-contained.
type ConsoleNotifier struct {
	logger *slog.Logger
}

func NewConsoleNotifier(logger *slog.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger}
}

func (n *ConsoleNotifier) SendEmail(ctx context.Context, to, subject, body string) error {
	n.logger.InfoContext(ctx, "email notification", "to", to, "subject", subject)
	n.logger.DebugContext(ctx, "email body", "to", to, "body", body)
	return nil
}

func (n *ConsoleNotifier) SendSMS(ctx context.Context, to, body string) error {
	n.logger.InfoContext(ctx, "sms notification", "to", to)
	n.logger.DebugContext(ctx, "sms body", "to", to, "body", body)
	return nil
}
