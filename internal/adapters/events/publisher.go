package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pgil256/juntas-seguras-sub008/internal/contracts"
)

// MemoryDomainPublisher buffers domain events in memory for tests.
type MemoryDomainPublisher struct {
	mu   sync.Mutex
	rows []contracts.EventEnvelope
}

func NewMemoryDomainPublisher() *MemoryDomainPublisher { return &MemoryDomainPublisher{} }

func (p *MemoryDomainPublisher) PublishDomain(_ context.Context, envelope contracts.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rows = append(p.rows, envelope)
	return nil
}

func (p *MemoryDomainPublisher) Events() []contracts.EventEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]contracts.EventEnvelope, len(p.rows))
	copy(out, p.rows)
	return out
}

// MemoryAnalyticsPublisher buffers analytics events in memory for tests.
type MemoryAnalyticsPublisher struct {
	mu   sync.Mutex
	rows []contracts.EventEnvelope
}

func NewMemoryAnalyticsPublisher() *MemoryAnalyticsPublisher { return &MemoryAnalyticsPublisher{} }

func (p *MemoryAnalyticsPublisher) PublishAnalytics(_ context.Context, envelope contracts.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rows = append(p.rows, envelope)
	return nil
}

func (p *MemoryAnalyticsPublisher) Events() []contracts.EventEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]contracts.EventEnvelope, len(p.rows))
	copy(out, p.rows)
	return out
}

// LoggingDomainPublisher writes domain events to the structured log. It is
// the default publisher until a broker is wired in deployment.
type LoggingDomainPublisher struct {
	logger *slog.Logger
}

func NewLoggingDomainPublisher(logger *slog.Logger) *LoggingDomainPublisher {
	return &LoggingDomainPublisher{logger: logger}
}

func (p *LoggingDomainPublisher) PublishDomain(ctx context.Context, envelope contracts.EventEnvelope) error {
	p.logger.InfoContext(ctx, "domain event published",
		"module", "events",
		"layer", "adapter",
		"operation", "publish_domain",
		"outcome", "success",
		"event_id", envelope.EventID,
		"event_type", envelope.EventType,
		"partition_key", envelope.PartitionKey,
	)
	return nil
}

// LoggingAnalyticsPublisher writes analytics events to the structured log.
type LoggingAnalyticsPublisher struct {
	logger *slog.Logger
}

func NewLoggingAnalyticsPublisher(logger *slog.Logger) *LoggingAnalyticsPublisher {
	return &LoggingAnalyticsPublisher{logger: logger}
}

func (p *LoggingAnalyticsPublisher) PublishAnalytics(ctx context.Context, envelope contracts.EventEnvelope) error {
	p.logger.InfoContext(ctx, "analytics event published",
		"module", "events",
		"layer", "adapter",
		"operation", "publish_analytics",
		"outcome", "success",
		"event_id", envelope.EventID,
		"event_type", envelope.EventType,
	)
	return nil
}
