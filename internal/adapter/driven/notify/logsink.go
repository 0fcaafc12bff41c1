// Package notify implements the NotificationSink port.
package notify

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/actionwatch/internal/domain/model"
	"github.com/ericfisherdev/actionwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.NotificationSink = (*LogSink)(nil)

// LogSink writes completion notifications to a structured logger. It is
// always enabled so completions are visible even without another channel.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Notify logs the notification title and body.
func (s *LogSink) Notify(ctx context.Context, success bool) error {
	n := model.CompletionNotification(success)

	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}

	s.logger.Log(ctx, level, "build notification",
		"title", n.Title,
		"body", n.Body,
		"success", success,
	)
	return nil
}
