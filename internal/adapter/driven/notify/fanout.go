package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/ericfisherdev/actionwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.NotificationSink = (*Fanout)(nil)

// DefaultBurst is the number of notifications allowed back to back before
// the rate limit applies.
const DefaultBurst = 3

// Fanout delivers each notification to every sink, behind a token-bucket
// limiter. Notifications over the limit are dropped, not queued: a build
// that flaps between runs should not page the user in a burst.
type Fanout struct {
	sinks   []driven.NotificationSink
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewFanout creates a Fanout allowing one notification per every, with
// DefaultBurst headroom. every <= 0 disables limiting.
func NewFanout(logger *slog.Logger, every time.Duration, sinks ...driven.NotificationSink) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if every > 0 {
		limit = rate.Every(every)
	}

	return &Fanout{
		sinks:   sinks,
		limiter: rate.NewLimiter(limit, DefaultBurst),
		logger:  logger,
	}
}

// Notify delivers to all sinks and joins their errors. A failing sink does
// not prevent delivery to the others.
func (f *Fanout) Notify(ctx context.Context, success bool) error {
	if !f.limiter.Allow() {
		f.logger.Warn("notification dropped by rate limit", "success", success)
		return nil
	}

	var errs []error
	for _, s := range f.sinks {
		if err := s.Notify(ctx, success); err != nil {
			f.logger.Warn("notification send failed", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
