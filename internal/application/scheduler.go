package application

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/pgil256/juntas-seguras-sub008/internal/contracts"
	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
)

type DecisionKind string

const (
	DecisionNotReady         DecisionKind = "not_ready"
	DecisionReadyToRelease   DecisionKind = "ready_to_release"
	DecisionAlreadyProcessed DecisionKind = "already_processed"
)

type PayoutDecision struct {
	Kind                DecisionKind `json:"kind"`
	MissingContributors []string     `json:"missing_contributors,omitempty"`
	RecipientID         string       `json:"recipient_id,omitempty"`
	Amount              float64      `json:"amount,omitempty"`
}

type PayoutResult struct {
	Decision DecisionKind   `json:"decision"`
	Payout   *domain.Payout `json:"payout,omitempty"`
	Missing  []string       `json:"missing_contributors,omitempty"`
	Pool     domain.Pool    `json:"pool"`
	Round    domain.Round   `json:"round"`
}

// EvaluateRound answers whether a round's payout may fire. Pure read: no
// locks, no side effects.
func (s *Service) EvaluateRound(ctx context.Context, pool domain.Pool, round domain.Round) (PayoutDecision, error) {
	if round.PayoutProcessed {
		return PayoutDecision{Kind: DecisionAlreadyProcessed}, nil
	}
	_, missing, err := s.collectionState(ctx, pool, round.RoundID)
	if err != nil {
		return PayoutDecision{}, err
	}
	if len(missing) > 0 {
		return PayoutDecision{Kind: DecisionNotReady, MissingContributors: missing}, nil
	}
	recipient, err := domain.RecipientFor(pool.Members, round.Number)
	if err != nil {
		return PayoutDecision{}, err
	}
	return PayoutDecision{
		Kind:        DecisionReadyToRelease,
		RecipientID: recipient.MemberID,
		Amount:      pool.PayoutAmount(),
	}, nil
}

// TriggerScheduledPayout is the exposed idempotent entry point for the
// current round of a pool.
func (s *Service) TriggerScheduledPayout(ctx context.Context, actor Actor, poolID string) (PayoutResult, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return PayoutResult{}, domain.ErrUnauthorized
	}
	if !actor.Operator() {
		return PayoutResult{}, domain.ErrForbidden
	}
	pool, round, err := s.currentRound(ctx, poolID)
	if err != nil {
		return PayoutResult{}, err
	}
	return s.triggerPayout(ctx, pool, round, false, actor.RequestID)
}

// triggerPayout performs the exactly-once release for a round. The whole
// read-check-release-advance sequence runs inside the per-round lock:
// payoutProcessed is re-read and set within the same exclusive scope, so two
// racing callers observe one gateway release and one replayed result.
func (s *Service) triggerPayout(ctx context.Context, pool domain.Pool, round domain.Round, early bool, traceID string) (PayoutResult, error) {
	release, err := s.locks.Acquire(ctx, round.RoundID)
	if err != nil {
		return PayoutResult{}, err
	}
	defer release()

	round, err = s.rounds.GetByID(ctx, round.RoundID)
	if err != nil {
		return PayoutResult{}, err
	}
	if round.Status == domain.RoundStatusHalted {
		return PayoutResult{}, domain.ErrRoundHalted
	}
	if round.PayoutProcessed {
		prior, err := s.payouts.GetByRound(ctx, round.RoundID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Processed flag without a payout record is data corruption:
				// halt the round rather than risk a second release.
				return PayoutResult{}, s.haltRound(ctx, round, "payout_processed set but no payout record")
			}
			// A transient store error is not corruption; let the caller retry.
			return PayoutResult{}, err
		}
		return PayoutResult{Decision: DecisionAlreadyProcessed, Payout: &prior, Pool: pool, Round: round}, nil
	}
	if round.Status == domain.RoundStatusCancelled {
		return PayoutResult{}, domain.ErrRoundClosed
	}

	decision, err := s.EvaluateRound(ctx, pool, round)
	if err != nil {
		return PayoutResult{}, err
	}
	if decision.Kind == DecisionNotReady {
		return PayoutResult{Decision: DecisionNotReady, Missing: decision.MissingContributors, Pool: pool, Round: round}, nil
	}
	recipient, ok := pool.MemberByID(decision.RecipientID)
	if !ok {
		return PayoutResult{}, domain.ErrInvalidConfiguration
	}
	if !recipient.PayoutMethod.Configured() {
		return PayoutResult{}, domain.ErrNoPayoutMethodConfigured
	}

	holds, err := s.holds.ListByRound(ctx, round.RoundID)
	if err != nil {
		return PayoutResult{}, err
	}
	captured := make([]domain.EscrowHold, 0, len(holds))
	for _, hold := range holds {
		switch hold.Status {
		case domain.HoldStatusVoided:
			continue
		case domain.HoldStatusReleasePending:
			// A previous release attempt died mid-flight. Never re-release.
			_ = s.enqueueReconciliation(ctx, pool.PoolID, round.RoundID, hold.HoldID, string(hold.Status), "release attempt in unknown state", traceID)
			return PayoutResult{}, domain.ErrRequiresReconciliation
		}
		c, err := s.captureHold(ctx, hold)
		if err != nil {
			_ = s.enqueueReconciliation(ctx, pool.PoolID, round.RoundID, hold.HoldID, string(hold.Status), err.Error(), traceID)
			return PayoutResult{}, err
		}
		captured = append(captured, c)
	}

	gross := pool.PayoutAmount()
	fee := platformFee(gross, s.cfg.PlatformFeeRate)
	payout, err := s.releaseFunds(ctx, pool, round, recipient, captured, gross, fee, early, traceID)
	if err != nil {
		return PayoutResult{}, err
	}

	now := s.nowFn()
	round.PayoutProcessed = true
	round.Status = domain.RoundStatusReleased
	round.UpdatedAt = now
	if err := s.rounds.Update(ctx, round); err != nil {
		return PayoutResult{}, err
	}

	if pool.CurrentRound >= pool.TotalRounds {
		pool.Status = domain.PoolStatusCompleted
		pool.UpdatedAt = now
		if err := s.pools.Update(ctx, pool); err != nil {
			return PayoutResult{}, err
		}
		if err := s.enqueuePoolCompleted(ctx, pool, traceID, now); err != nil {
			return PayoutResult{}, err
		}
	} else {
		pool.CurrentRound++
		pool.UpdatedAt = now
		if err := s.pools.Update(ctx, pool); err != nil {
			return PayoutResult{}, err
		}
		// Next round keeps the original cadence: early release never shifts
		// future dates.
		if _, err := s.materializeRound(ctx, pool, pool.CurrentRound, domain.NextScheduledDate(pool.Frequency, round.ScheduledPayoutAt)); err != nil {
			return PayoutResult{}, err
		}
	}

	if err := s.enqueuePayoutReleased(ctx, payout, traceID); err != nil {
		return PayoutResult{}, err
	}
	s.notify(ctx, contracts.Notification{
		Kind:       contracts.NotifyPayoutReleased,
		PoolID:     pool.PoolID,
		RoundID:    round.RoundID,
		MemberID:   payout.RecipientID,
		Payload:    map[string]any{"net_amount": payout.NetAmount, "early": early},
		OccurredAt: now,
	})
	s.logger.InfoContext(ctx, "payout released",
		"module", "application",
		"operation", "trigger_payout",
		"outcome", "success",
		"pool_id", pool.PoolID,
		"round_id", round.RoundID,
		"recipient_id", payout.RecipientID,
		"net_amount", payout.NetAmount,
		"early", early,
	)
	return PayoutResult{Decision: DecisionReadyToRelease, Payout: &payout, Pool: pool, Round: round}, nil
}

// SweepDueRounds evaluates rounds whose scheduled payout date has passed and
// fires the ones that are ready. Called by the cron worker.
func (s *Service) SweepDueRounds(ctx context.Context, limit int) (fired int, err error) {
	due, err := s.rounds.ListDue(ctx, s.nowFn(), limit)
	if err != nil {
		return 0, err
	}
	for _, round := range due {
		pool, err := s.pools.GetByID(ctx, round.PoolID)
		if err != nil {
			s.logger.ErrorContext(ctx, "sweep pool load failed",
				"module", "application",
				"operation", "sweep_due_rounds",
				"outcome", "failure",
				"pool_id", round.PoolID,
				"error", err,
			)
			continue
		}
		if pool.Status != domain.PoolStatusActive || pool.CurrentRound != round.Number {
			continue
		}
		result, err := s.triggerPayout(ctx, pool, round, false, "")
		if err != nil {
			s.logger.ErrorContext(ctx, "sweep payout failed",
				"module", "application",
				"operation", "sweep_due_rounds",
				"outcome", "failure",
				"pool_id", pool.PoolID,
				"round_id", round.RoundID,
				"error", err,
			)
			continue
		}
		if result.Decision == DecisionReadyToRelease {
			fired++
		}
	}
	return fired, nil
}

// haltRound freezes a round after a detected consistency violation. All
// further mutation is refused until an operator intervenes.
func (s *Service) haltRound(ctx context.Context, round domain.Round, detail string) error {
	round.Status = domain.RoundStatusHalted
	round.UpdatedAt = s.nowFn()
	if err := s.rounds.Update(ctx, round); err != nil {
		return err
	}
	s.logger.ErrorContext(ctx, "round halted",
		"module", "application",
		"operation", "halt_round",
		"outcome", "failure",
		"pool_id", round.PoolID,
		"round_id", round.RoundID,
		"detail", detail,
	)
	_ = s.enqueueReconciliation(ctx, round.PoolID, round.RoundID, "", string(domain.RoundStatusHalted), detail, "")
	return domain.ErrRoundHalted
}

func platformFee(gross, rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	return math.Round(gross*rate*100) / 100
}
