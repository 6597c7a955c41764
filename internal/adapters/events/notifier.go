package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alitto/pond/v2"

	"github.com/pgil256/juntas-seguras-sub008/internal/contracts"
)

// Sender delivers one notification; implementations wrap email/SMS/push
// providers.
type Sender interface {
	Send(ctx context.Context, event contracts.Notification) error
}

// AsyncNotifier dispatches notifications on a bounded worker pool so the
// financial write path never waits on delivery. Failures are logged and
// swallowed: notification delivery never rolls back financial state.
type AsyncNotifier struct {
	logger *slog.Logger
	sender Sender
	pool   pond.Pool
}

func NewAsyncNotifier(logger *slog.Logger, sender Sender, maxWorkers int) *AsyncNotifier {
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	return &AsyncNotifier{
		logger: logger,
		sender: sender,
		pool:   pond.NewPool(maxWorkers),
	}
}

func (n *AsyncNotifier) Notify(_ context.Context, event contracts.Notification) {
	n.pool.Submit(func() {
		ctx := context.Background()
		if err := n.sender.Send(ctx, event); err != nil {
			n.logger.WarnContext(ctx, "notification delivery failed",
				"module", "events.notifier",
				"layer", "adapter",
				"operation", "notify",
				"outcome", "failure",
				"kind", event.Kind,
				"pool_id", event.PoolID,
				"member_id", event.MemberID,
				"error", err,
			)
		}
	})
}

// Stop waits for queued notifications to drain. Called on shutdown.
func (n *AsyncNotifier) Stop() {
	n.pool.StopAndWait()
}

// LoggingSender is the default sender: it records the notification in the
// structured log.
type LoggingSender struct {
	logger *slog.Logger
}

func NewLoggingSender(logger *slog.Logger) *LoggingSender { return &LoggingSender{logger: logger} }

func (s *LoggingSender) Send(ctx context.Context, event contracts.Notification) error {
	s.logger.InfoContext(ctx, "notification sent",
		"module", "events.notifier",
		"layer", "adapter",
		"operation", "send",
		"outcome", "success",
		"kind", event.Kind,
		"pool_id", event.PoolID,
		"member_id", event.MemberID,
	)
	return nil
}

// MemorySink collects notifications synchronously for tests.
type MemorySink struct {
	mu   sync.Mutex
	rows []contracts.Notification
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Notify(_ context.Context, event contracts.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, event)
}

func (s *MemorySink) Notifications() []contracts.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]contracts.Notification, len(s.rows))
	copy(out, s.rows)
	return out
}
