package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
)

// authorizeHold places a gateway hold for one contribution. Authorize is the
// only gateway call retried here: no funds have moved yet, so a bounded
// retry with linearly growing backoff is safe.
func (s *Service) authorizeHold(ctx context.Context, pool domain.Pool, round domain.Round, c domain.Contribution) (domain.EscrowHold, error) {
	var holdRef string
	var err error
	for attempt := 1; attempt <= s.cfg.AuthorizeRetryAttempts; attempt++ {
		holdRef, err = s.gateway.Authorize(ctx, c.MemberID, c.Amount)
		if err == nil {
			break
		}
		s.logger.WarnContext(ctx, "gateway authorize failed",
			"module", "application",
			"operation", "authorize_hold",
			"outcome", "failure",
			"pool_id", pool.PoolID,
			"round_id", round.RoundID,
			"member_id", c.MemberID,
			"attempt", attempt,
			"error", err,
		)
		if attempt == s.cfg.AuthorizeRetryAttempts {
			return domain.EscrowHold{}, fmt.Errorf("%w: %v", domain.ErrGatewayAuthorizationFailed, err)
		}
		select {
		case <-ctx.Done():
			return domain.EscrowHold{}, ctx.Err()
		case <-time.After(s.cfg.AuthorizeRetryBackoff * time.Duration(attempt)):
		}
	}

	now := s.nowFn()
	hold := domain.EscrowHold{
		HoldID:          uuid.NewString(),
		ContributionID:  c.ContributionID,
		PoolID:          pool.PoolID,
		RoundID:         round.RoundID,
		MemberID:        c.MemberID,
		Amount:          c.Amount,
		Status:          domain.HoldStatusAuthorized,
		GatewayHoldRef:  holdRef,
		HoldCreatedAt:   now,
		ReleaseDeadline: now.Add(s.cfg.EscrowAuthWindow),
		UpdatedAt:       now,
	}
	if err := s.holds.Create(ctx, hold); err != nil {
		return domain.EscrowHold{}, err
	}
	if err := s.appendLedger(ctx, pool.PoolID, round.RoundID, c.MemberID, domain.LedgerEntryHold, c.Amount, now); err != nil {
		return domain.EscrowHold{}, err
	}
	return hold, nil
}

// CaptureHold is the operator reconciliation entry point: it irreversibly
// converts an authorized hold into captured funds. Capture is idempotent:
// repeating it on a captured hold returns the existing result, tolerating
// at-least-once delivery from callers. A gateway failure is never
// blind-retried; it surfaces as requires-reconciliation.
func (s *Service) CaptureHold(ctx context.Context, actor Actor, holdID string) (domain.EscrowHold, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.EscrowHold{}, domain.ErrUnauthorized
	}
	if !actor.Operator() {
		return domain.EscrowHold{}, domain.ErrForbidden
	}
	hold, err := s.holds.GetByID(ctx, strings.TrimSpace(holdID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.EscrowHold{}, domain.ErrHoldNotFound
		}
		return domain.EscrowHold{}, err
	}
	return s.captureHold(ctx, hold)
}

func (s *Service) captureHold(ctx context.Context, hold domain.EscrowHold) (domain.EscrowHold, error) {
	switch hold.Status {
	case domain.HoldStatusCaptured:
		return hold, nil
	case domain.HoldStatusAuthorized:
	default:
		return domain.EscrowHold{}, domain.ErrHoldNotCapturable
	}
	now := s.nowFn()
	if hold.Expired(now) {
		hold.Status = domain.HoldStatusExpired
		hold.UpdatedAt = now
		if err := s.holds.Update(ctx, hold); err != nil {
			return domain.EscrowHold{}, err
		}
		_ = s.enqueueHoldState(ctx, hold, domain.EventEscrowHoldExpired, "")
		return domain.EscrowHold{}, domain.ErrHoldExpired
	}

	capRef, err := s.gateway.Capture(ctx, hold.GatewayHoldRef)
	if err != nil {
		s.logger.ErrorContext(ctx, "gateway capture failed",
			"module", "application",
			"operation", "capture_hold",
			"outcome", "failure",
			"pool_id", hold.PoolID,
			"round_id", hold.RoundID,
			"hold_id", hold.HoldID,
			"error", err,
		)
		return domain.EscrowHold{}, fmt.Errorf("%w: capture hold %s: %v", domain.ErrRequiresReconciliation, hold.HoldID, err)
	}
	hold.Status = domain.HoldStatusCaptured
	hold.GatewayCapRef = capRef
	hold.UpdatedAt = now
	if err := s.holds.Update(ctx, hold); err != nil {
		return domain.EscrowHold{}, err
	}
	if err := s.appendLedger(ctx, hold.PoolID, hold.RoundID, hold.MemberID, domain.LedgerEntryCapture, hold.Amount, now); err != nil {
		return domain.EscrowHold{}, err
	}
	return hold, nil
}

// releaseFunds forwards the round's captured funds to the recipient. The
// release-attempt marker is persisted before the gateway call: a crash after
// the marker and before confirmation leaves the holds in release_pending,
// which is "unknown, requires reconciliation", never "safe to retry".
func (s *Service) releaseFunds(ctx context.Context, pool domain.Pool, round domain.Round, recipient domain.Member, captured []domain.EscrowHold, gross, fee float64, early bool, traceID string) (domain.Payout, error) {
	if !recipient.PayoutMethod.Configured() {
		return domain.Payout{}, domain.ErrNoPayoutMethodConfigured
	}
	now := s.nowFn()
	for i, hold := range captured {
		hold.Status = domain.HoldStatusReleasePending
		hold.UpdatedAt = now
		if err := s.holds.Update(ctx, hold); err != nil {
			return domain.Payout{}, err
		}
		captured[i] = hold
	}

	net := gross - fee
	gatewayRef, err := s.gateway.Payout(ctx, recipient.PayoutMethod, net)
	if err != nil {
		s.logger.ErrorContext(ctx, "gateway payout failed",
			"module", "application",
			"operation", "release_funds",
			"outcome", "failure",
			"pool_id", pool.PoolID,
			"round_id", round.RoundID,
			"recipient_id", recipient.MemberID,
			"net_amount", net,
			"error", err,
		)
		_ = s.enqueueReconciliation(ctx, pool.PoolID, round.RoundID, "", string(domain.HoldStatusReleasePending), err.Error(), traceID)
		return domain.Payout{}, fmt.Errorf("%w: %v", domain.ErrPayoutDeliveryFailed, err)
	}

	releasedAt := s.nowFn()
	for i, hold := range captured {
		hold.Status = domain.HoldStatusReleased
		hold.ReleasedAt = &releasedAt
		hold.UpdatedAt = releasedAt
		if err := s.holds.Update(ctx, hold); err != nil {
			return domain.Payout{}, err
		}
		captured[i] = hold
	}
	payout := domain.Payout{
		PayoutID:      uuid.NewString(),
		PoolID:        pool.PoolID,
		RoundID:       round.RoundID,
		RecipientID:   recipient.MemberID,
		GrossAmount:   gross,
		PlatformFee:   fee,
		NetAmount:     net,
		Method:        recipient.PayoutMethod,
		GatewayRef:    gatewayRef,
		ReleasedAt:    releasedAt,
		EarlyReleased: early,
	}
	if err := s.payouts.Create(ctx, payout); err != nil {
		return domain.Payout{}, err
	}
	if err := s.appendLedger(ctx, pool.PoolID, round.RoundID, recipient.MemberID, domain.LedgerEntryRelease, net, releasedAt); err != nil {
		return domain.Payout{}, err
	}
	if fee > 0 {
		if err := s.appendLedger(ctx, pool.PoolID, round.RoundID, "", domain.LedgerEntryFee, fee, releasedAt); err != nil {
			return domain.Payout{}, err
		}
	}
	return payout, nil
}

// VoidHold is the operator reconciliation entry point for returning an
// authorized hold to the payer without capturing.
func (s *Service) VoidHold(ctx context.Context, actor Actor, holdID string) (domain.EscrowHold, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.EscrowHold{}, domain.ErrUnauthorized
	}
	if !actor.Operator() {
		return domain.EscrowHold{}, domain.ErrForbidden
	}
	hold, err := s.holds.GetByID(ctx, strings.TrimSpace(holdID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.EscrowHold{}, domain.ErrHoldNotFound
		}
		return domain.EscrowHold{}, err
	}
	return s.voidHold(ctx, hold, actor.RequestID)
}

func (s *Service) voidHold(ctx context.Context, hold domain.EscrowHold, traceID string) (domain.EscrowHold, error) {
	if hold.Status != domain.HoldStatusAuthorized {
		return domain.EscrowHold{}, domain.ErrHoldNotCapturable
	}
	if err := s.gateway.Void(ctx, hold.GatewayHoldRef); err != nil {
		return domain.EscrowHold{}, fmt.Errorf("%w: void hold %s: %v", domain.ErrRequiresReconciliation, hold.HoldID, err)
	}
	now := s.nowFn()
	hold.Status = domain.HoldStatusVoided
	hold.UpdatedAt = now
	if err := s.holds.Update(ctx, hold); err != nil {
		return domain.EscrowHold{}, err
	}
	if err := s.appendLedger(ctx, hold.PoolID, hold.RoundID, hold.MemberID, domain.LedgerEntryVoid, hold.Amount, now); err != nil {
		return domain.EscrowHold{}, err
	}
	_ = s.enqueueHoldState(ctx, hold, domain.EventEscrowHoldVoided, traceID)
	return hold, nil
}

func (s *Service) appendLedger(ctx context.Context, poolID, roundID, memberID string, entryType domain.LedgerEntryType, amount float64, at time.Time) error {
	return s.ledger.Append(ctx, domain.LedgerEntry{
		EntryID:    uuid.NewString(),
		PoolID:     poolID,
		RoundID:    roundID,
		MemberID:   memberID,
		EntryType:  entryType,
		Amount:     amount,
		OccurredAt: at,
	})
}
