package poll

import (
	"context"
	"log/slog"
	"time"
)

// Task is a cancellable periodic task: it runs fn on a fixed interval,
// backs off exponentially while fn keeps failing (capped at maxBackoff) and
// returns to the base cadence on the next success. It replaces the
// uncoordinated interval timers a dashboard would otherwise run.
type Task struct {
	name       string
	interval   time.Duration
	maxBackoff time.Duration
	fn         func(ctx context.Context) error
	logger     *slog.Logger
}

func NewTask(name string, interval, maxBackoff time.Duration, fn func(ctx context.Context) error, logger *slog.Logger) *Task {
	if maxBackoff < interval {
		maxBackoff = interval
	}
	return &Task{
		name:       name,
		interval:   interval,
		maxBackoff: maxBackoff,
		fn:         fn,
		logger:     logger,
	}
}

// Run blocks until ctx is done. The first tick fires immediately.
func (t *Task) Run(ctx context.Context) {
	wait := time.Duration(0)
	backoff := t.interval

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if err := t.fn(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			t.logger.Warn("poll tick failed", "task", t.name, "error", err, "backoff", backoff)
			wait = backoff
			backoff *= 2
			if backoff > t.maxBackoff {
				backoff = t.maxBackoff
			}
			continue
		}

		wait = t.interval
		backoff = t.interval
	}
}
