package ports

import (
	"context"

	"github.com/pgil256/juntas-seguras-sub008/internal/contracts"
)

type DomainPublisher interface {
	PublishDomain(ctx context.Context, envelope contracts.EventEnvelope) error
}

type AnalyticsPublisher interface {
	PublishAnalytics(ctx context.Context, envelope contracts.EventEnvelope) error
}

// NotificationSink delivers member-facing notifications. Fire-and-forget:
// failures are logged by implementations and never roll back financial state.
type NotificationSink interface {
	Notify(ctx context.Context, event contracts.Notification)
}
