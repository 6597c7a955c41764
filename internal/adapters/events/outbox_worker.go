package events

import (
	"context"
	"log/slog"
	"time"
)

// Flusher is satisfied by the application service's FlushOutbox.
type Flusher interface {
	FlushOutbox(ctx context.Context) error
}

// OutboxWorker drains the transactional outbox on an interval. Separating
// broker delivery from the write path keeps financial mutations and event
// publishing decoupled.
type OutboxWorker struct {
	logger   *slog.Logger
	flusher  Flusher
	interval time.Duration
}

func NewOutboxWorker(logger *slog.Logger, flusher Flusher, interval time.Duration) *OutboxWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &OutboxWorker{logger: logger, flusher: flusher, interval: interval}
}

// Run executes the periodic flush loop until context cancellation.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.flusher.FlushOutbox(ctx); err != nil {
			w.logger.ErrorContext(ctx, "outbox flush failed",
				"module", "events.outbox_worker",
				"layer", "adapter",
				"operation", "flush_outbox",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
