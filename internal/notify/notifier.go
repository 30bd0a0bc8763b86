package notify

import (
	"context"
	"log/slog"
)

// Notifier delivers a text message to a user over the outbound messaging
// channel.
type Notifier interface {
	// Send delivers a message to a user
	Send(ctx context.Context, userID, message string) error
}

// LogNotifier writes messages to the log instead of delivering them.
// Useful for local development without a messaging channel.
type LogNotifier struct{}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Send logs the message.
func (l *LogNotifier) Send(ctx context.Context, userID, message string) error {
	slog.Info("Notification", "user_id", userID, "message", message)
	return nil
}
