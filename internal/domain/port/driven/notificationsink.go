package driven

import "context"

// NotificationSink defines the driven port for user-facing completion alerts.
// The message is chosen by model.CompletionNotification(success).
type NotificationSink interface {
	Notify(ctx context.Context, success bool) error
}
