package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pgil256/juntas-seguras-sub008/internal/contracts"
	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
	"github.com/pgil256/juntas-seguras-sub008/internal/ports"
)

// FlushOutbox publishes pending outbox records to the configured publishers.
// Domain events propagate errors so the worker retries; analytics events are
// best effort.
func (s *Service) FlushOutbox(ctx context.Context) error {
	if s.outbox == nil {
		return nil
	}
	pending, err := s.outbox.ListPending(ctx, s.cfg.OutboxFlushBatchSize)
	if err != nil {
		return err
	}
	for _, rec := range pending {
		now := s.nowFn()
		switch rec.EventClass {
		case domain.CanonicalEventClassDomain:
			if s.domainEvents != nil {
				if err := s.domainEvents.PublishDomain(ctx, rec.Envelope); err != nil {
					return err
				}
			}
		case domain.CanonicalEventClassAnalyticsOnly:
			if s.analytics != nil {
				_ = s.analytics.PublishAnalytics(ctx, rec.Envelope)
			}
		default:
			return fmt.Errorf("unsupported event class %q", rec.EventClass)
		}
		if err := s.outbox.MarkSent(ctx, rec.RecordID, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) enqueueEvent(ctx context.Context, eventType, traceID string, data any, poolID string, now time.Time) error {
	if s.outbox == nil {
		return nil
	}
	if !domain.IsCanonicalEmittedEvent(eventType) {
		return domain.ErrInvalidInput
	}
	b, err := json.Marshal(data)
	if err != nil {
		return domain.ErrInvalidInput
	}
	if strings.TrimSpace(traceID) == "" {
		traceID = uuid.NewString()
	}
	env := contracts.EventEnvelope{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		EventClass:       domain.CanonicalEventClass(eventType),
		OccurredAt:       now,
		PartitionKeyPath: domain.CanonicalPartitionKeyPath(eventType),
		PartitionKey:     poolID,
		SourceService:    s.cfg.ServiceName,
		TraceID:          traceID,
		SchemaVersion:    "v1",
		Data:             b,
	}
	return s.outbox.Enqueue(ctx, ports.OutboxRecord{
		RecordID:   uuid.NewString(),
		EventClass: env.EventClass,
		Envelope:   env,
		CreatedAt:  now,
	})
}

func (s *Service) enqueueContributionReceived(ctx context.Context, c domain.Contribution, allReceived bool, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventContributionReceived, traceID, contracts.ContributionReceivedPayload{
		PoolID:      c.PoolID,
		RoundID:     c.RoundID,
		MemberID:    c.MemberID,
		Amount:      c.Amount,
		EscrowID:    c.EscrowID,
		AllReceived: allReceived,
		RecordedAt:  c.RecordedAt.UTC().Format(time.RFC3339),
	}, c.PoolID, now)
}

func (s *Service) enqueueRoundReady(ctx context.Context, pool domain.Pool, round domain.Round, traceID string) error {
	return s.enqueueEvent(ctx, domain.EventRoundReady, traceID, contracts.RoundReadyPayload{
		PoolID:      pool.PoolID,
		RoundID:     round.RoundID,
		RoundNumber: round.Number,
		RecipientID: round.RecipientMemberID,
		Amount:      pool.PayoutAmount(),
	}, pool.PoolID, s.nowFn())
}

func (s *Service) enqueuePayoutReleased(ctx context.Context, payout domain.Payout, traceID string) error {
	return s.enqueueEvent(ctx, domain.EventPayoutReleased, traceID, contracts.PayoutReleasedPayload{
		PoolID:      payout.PoolID,
		RoundID:     payout.RoundID,
		RecipientID: payout.RecipientID,
		GrossAmount: payout.GrossAmount,
		PlatformFee: payout.PlatformFee,
		NetAmount:   payout.NetAmount,
		Early:       payout.EarlyReleased,
		ReleasedAt:  payout.ReleasedAt.UTC().Format(time.RFC3339),
	}, payout.PoolID, s.nowFn())
}

func (s *Service) enqueueReconciliation(ctx context.Context, poolID, roundID, holdID, lastState, detail, traceID string) error {
	return s.enqueueEvent(ctx, domain.EventPayoutReconciliation, traceID, contracts.PayoutReconciliationPayload{
		PoolID:    poolID,
		RoundID:   roundID,
		HoldID:    holdID,
		LastState: lastState,
		Detail:    detail,
	}, poolID, s.nowFn())
}

func (s *Service) enqueueEarlyPayoutResolved(ctx context.Context, request domain.EarlyPayoutRequest) error {
	eventType := domain.EventEarlyPayoutApproved
	if request.Outcome == domain.EarlyPayoutDenied {
		eventType = domain.EventEarlyPayoutDenied
	}
	return s.enqueueEvent(ctx, eventType, "", contracts.EarlyPayoutResolvedPayload{
		PoolID:      request.PoolID,
		RoundID:     request.RoundID,
		RequestID:   request.RequestID,
		RequestedBy: request.RequestedBy,
		Outcome:     string(request.Outcome),
		Reason:      request.DenyReason,
	}, request.PoolID, s.nowFn())
}

func (s *Service) enqueuePoolCompleted(ctx context.Context, pool domain.Pool, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventPoolCompleted, traceID, contracts.PoolCompletedPayload{
		PoolID:      pool.PoolID,
		TotalRounds: pool.TotalRounds,
		CompletedAt: now.UTC().Format(time.RFC3339),
	}, pool.PoolID, now)
}

func (s *Service) enqueueHoldState(ctx context.Context, hold domain.EscrowHold, eventType, traceID string) error {
	return s.enqueueEvent(ctx, eventType, traceID, contracts.EscrowHoldStatePayload{
		PoolID:   hold.PoolID,
		RoundID:  hold.RoundID,
		HoldID:   hold.HoldID,
		MemberID: hold.MemberID,
		Amount:   hold.Amount,
		State:    string(hold.Status),
	}, hold.PoolID, s.nowFn())
}

// notify hands an event to the notification sink. Failures there never roll
// back financial state; the sink owns its own logging.
func (s *Service) notify(ctx context.Context, event contracts.Notification) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, event)
}
