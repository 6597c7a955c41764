package application

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/pgil256/juntas-seguras-sub008/internal/contracts"
	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
)

type RecordContributionInput struct {
	PoolID   string
	MemberID string
	Amount   float64
	// Direct marks a payment settled outside the platform; it skips escrow.
	Direct bool
}

type ContributionOutput struct {
	Contribution domain.Contribution `json:"contribution"`
	Hold         *domain.EscrowHold  `json:"hold,omitempty"`
	AllReceived  bool                `json:"all_received"`
}

// RecordContribution records one member's payment for the current round.
// Contributions for different members may race freely; the repository's
// round+member uniqueness turns a same-member race into a duplicate error.
func (s *Service) RecordContribution(ctx context.Context, actor Actor, input RecordContributionInput) (ContributionOutput, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return ContributionOutput{}, domain.ErrUnauthorized
	}
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return ContributionOutput{}, domain.ErrIdempotencyRequired
	}
	input.PoolID = strings.TrimSpace(input.PoolID)
	input.MemberID = strings.TrimSpace(input.MemberID)
	if input.PoolID == "" || input.MemberID == "" || input.Amount <= 0 {
		return ContributionOutput{}, domain.ErrInvalidInput
	}

	requestHash := hashJSON(input)
	var cached ContributionOutput
	if ok, err := s.getIdempotent(ctx, actor.IdempotencyKey, requestHash, &cached); err != nil {
		return ContributionOutput{}, err
	} else if ok {
		return cached, nil
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return ContributionOutput{}, err
	}

	pool, round, err := s.currentRound(ctx, input.PoolID)
	if err != nil {
		return ContributionOutput{}, err
	}
	if pool.Status != domain.PoolStatusActive {
		return ContributionOutput{}, domain.ErrPoolNotActive
	}
	switch round.Status {
	case domain.RoundStatusCollecting, domain.RoundStatusReady:
	case domain.RoundStatusHalted:
		return ContributionOutput{}, domain.ErrRoundHalted
	default:
		return ContributionOutput{}, domain.ErrRoundClosed
	}
	member, ok := pool.MemberByID(input.MemberID)
	if !ok {
		return ContributionOutput{}, domain.ErrNotFound
	}
	// Amounts are fixed, not negotiable per member.
	if input.Amount != pool.ContributionAmount {
		return ContributionOutput{}, domain.ErrAmountMismatch
	}
	if existing, err := s.contributions.GetForMember(ctx, round.RoundID, member.MemberID); err == nil && !existing.Voided {
		return ContributionOutput{}, domain.ErrDuplicateContribution
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return ContributionOutput{}, err
	}

	now := s.nowFn()
	contribution := domain.Contribution{
		ContributionID: uuid.NewString(),
		RoundID:        round.RoundID,
		PoolID:         pool.PoolID,
		MemberID:       member.MemberID,
		Amount:         input.Amount,
		RecordedAt:     now,
	}

	var hold *domain.EscrowHold
	if !input.Direct {
		h, err := s.authorizeHold(ctx, pool, round, contribution)
		if err != nil {
			return ContributionOutput{}, err
		}
		hold = &h
		contribution.EscrowID = h.HoldID
	}
	if err := s.contributions.Append(ctx, contribution); err != nil {
		// Two same-member calls can both pass the GetForMember check and
		// authorize before either appends. The loser must void its hold:
		// an orphan authorization would be swept into the round's capture
		// set and charge the member twice.
		if hold != nil {
			if _, vErr := s.voidHold(ctx, *hold, actor.RequestID); vErr != nil {
				s.logger.ErrorContext(ctx, "void of orphan hold failed",
					"module", "application",
					"operation", "record_contribution",
					"outcome", "failure",
					"pool_id", pool.PoolID,
					"round_id", round.RoundID,
					"hold_id", hold.HoldID,
					"error", vErr,
				)
				_ = s.enqueueReconciliation(ctx, pool.PoolID, round.RoundID, hold.HoldID, string(hold.Status), "orphan authorization could not be voided", actor.RequestID)
			}
		}
		if errors.Is(err, domain.ErrConflict) {
			return ContributionOutput{}, domain.ErrDuplicateContribution
		}
		return ContributionOutput{}, err
	}

	received, missing, err := s.collectionState(ctx, pool, round.RoundID)
	if err != nil {
		return ContributionOutput{}, err
	}
	allReceived := len(missing) == 0

	if err := s.enqueueContributionReceived(ctx, contribution, allReceived, actor.RequestID, now); err != nil {
		return ContributionOutput{}, err
	}
	if allReceived && !round.PayoutProcessed {
		if err := s.markRoundReady(ctx, pool, round, actor.RequestID); err != nil {
			return ContributionOutput{}, err
		}
	}
	s.notify(ctx, contracts.Notification{
		Kind:       contracts.NotifyContributionReceived,
		PoolID:     pool.PoolID,
		RoundID:    round.RoundID,
		MemberID:   member.MemberID,
		Payload:    map[string]any{"amount": input.Amount, "contributions_in": received},
		OccurredAt: now,
	})

	out := ContributionOutput{Contribution: contribution, Hold: hold, AllReceived: allReceived}
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 201, out)
	return out, nil
}

// AllReceived reports whether every member of the pool has a non-voided
// contribution for the round. The recipient is included: the payout always
// equals contributionAmount x memberCount, so the recipient pays into their
// own round.
func (s *Service) AllReceived(ctx context.Context, pool domain.Pool, roundID string) (bool, error) {
	_, missing, err := s.collectionState(ctx, pool, roundID)
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

// MissingContributors lists members without a contribution this round, in
// position order, for display and diagnostics.
func (s *Service) MissingContributors(ctx context.Context, pool domain.Pool, roundID string) ([]string, error) {
	_, missing, err := s.collectionState(ctx, pool, roundID)
	return missing, err
}

func (s *Service) collectionState(ctx context.Context, pool domain.Pool, roundID string) (received int, missing []string, err error) {
	rows, err := s.contributions.ListByRound(ctx, roundID)
	if err != nil {
		return 0, nil, err
	}
	paid := make(map[string]bool, len(rows))
	for _, c := range rows {
		if !c.Voided {
			paid[c.MemberID] = true
		}
	}
	missing = make([]string, 0)
	for _, m := range domain.SortedByPosition(pool.Members) {
		if paid[m.MemberID] {
			received++
			continue
		}
		missing = append(missing, m.MemberID)
	}
	return received, missing, nil
}

// markRoundReady flips collecting -> ready under the round lock. The
// ready->released transition stays with TriggerPayout.
func (s *Service) markRoundReady(ctx context.Context, pool domain.Pool, round domain.Round, traceID string) error {
	release, err := s.locks.Acquire(ctx, round.RoundID)
	if err != nil {
		return err
	}
	defer release()

	current, err := s.rounds.GetByID(ctx, round.RoundID)
	if err != nil {
		return err
	}
	if current.Status != domain.RoundStatusCollecting || current.PayoutProcessed {
		return nil
	}
	current.Status = domain.RoundStatusReady
	current.UpdatedAt = s.nowFn()
	if err := s.rounds.Update(ctx, current); err != nil {
		return err
	}
	return s.enqueueRoundReady(ctx, pool, current, traceID)
}
