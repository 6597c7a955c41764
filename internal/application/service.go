package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pgil256/juntas-seguras-sub008/internal/contracts"
	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
)

type CreatePoolInput struct {
	Name               string
	ContributionAmount float64
	Frequency          domain.Frequency
	Members            []domain.Member
}

// CreatePool validates the roster once at the boundary and persists a
// pending pool. Rounds are not materialized until activation.
func (s *Service) CreatePool(ctx context.Context, actor Actor, input CreatePoolInput) (domain.Pool, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Pool{}, domain.ErrUnauthorized
	}
	if strings.TrimSpace(input.Name) == "" {
		return domain.Pool{}, domain.ErrInvalidInput
	}
	if err := domain.ValidatePoolInput(input.Members, input.ContributionAmount, input.Frequency); err != nil {
		return domain.Pool{}, err
	}
	now := s.nowFn()
	pool := domain.Pool{
		PoolID:             uuid.NewString(),
		Name:               strings.TrimSpace(input.Name),
		Members:            domain.SortedByPosition(input.Members),
		ContributionAmount: input.ContributionAmount,
		Frequency:          input.Frequency,
		CurrentRound:       0,
		TotalRounds:        len(input.Members),
		Status:             domain.PoolStatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.pools.Create(ctx, pool); err != nil {
		return domain.Pool{}, err
	}
	s.logger.InfoContext(ctx, "pool created",
		"module", "application",
		"operation", "create_pool",
		"outcome", "success",
		"pool_id", pool.PoolID,
		"member_count", len(pool.Members),
	)
	return pool, nil
}

// ActivatePool transitions a pending pool to active and materializes round 1.
func (s *Service) ActivatePool(ctx context.Context, actor Actor, poolID string) (domain.Pool, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Pool{}, domain.ErrUnauthorized
	}
	pool, err := s.pools.GetByID(ctx, strings.TrimSpace(poolID))
	if err != nil {
		return domain.Pool{}, err
	}
	if pool.Status != domain.PoolStatusPending {
		return domain.Pool{}, domain.ErrConflict
	}
	now := s.nowFn()
	pool.Status = domain.PoolStatusActive
	pool.CurrentRound = 1
	pool.UpdatedAt = now
	if _, err := s.materializeRound(ctx, pool, 1, domain.NextScheduledDate(pool.Frequency, now)); err != nil {
		return domain.Pool{}, err
	}
	if err := s.pools.Update(ctx, pool); err != nil {
		return domain.Pool{}, err
	}
	return pool, nil
}

func (s *Service) GetPool(ctx context.Context, actor Actor, poolID string) (domain.Pool, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Pool{}, domain.ErrUnauthorized
	}
	return s.pools.GetByID(ctx, strings.TrimSpace(poolID))
}

type RoundStatusOutput struct {
	Pool                 domain.Pool
	Round                domain.Round
	ContributionsIn      int
	MissingContributions []string
}

// GetRoundStatus reports the current round's collection progress.
func (s *Service) GetRoundStatus(ctx context.Context, actor Actor, poolID string) (RoundStatusOutput, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return RoundStatusOutput{}, domain.ErrUnauthorized
	}
	pool, round, err := s.currentRound(ctx, poolID)
	if err != nil {
		return RoundStatusOutput{}, err
	}
	received, missing, err := s.collectionState(ctx, pool, round.RoundID)
	if err != nil {
		return RoundStatusOutput{}, err
	}
	return RoundStatusOutput{
		Pool:                 pool,
		Round:                round,
		ContributionsIn:      received,
		MissingContributions: missing,
	}, nil
}

// CancelCurrentRound voids all escrow holds of the current round, voids its
// contributions, and pauses the pool. This is the only path to a cancelled
// round.
func (s *Service) CancelCurrentRound(ctx context.Context, actor Actor, poolID, reason string) (domain.Round, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Round{}, domain.ErrUnauthorized
	}
	if !actor.Operator() {
		return domain.Round{}, domain.ErrForbidden
	}
	pool, round, err := s.currentRound(ctx, poolID)
	if err != nil {
		return domain.Round{}, err
	}
	release, err := s.locks.Acquire(ctx, round.RoundID)
	if err != nil {
		return domain.Round{}, err
	}
	defer release()

	round, err = s.rounds.GetByID(ctx, round.RoundID)
	if err != nil {
		return domain.Round{}, err
	}
	if round.PayoutProcessed || round.Status == domain.RoundStatusReleased {
		return domain.Round{}, domain.ErrRoundClosed
	}
	now := s.nowFn()
	holds, err := s.holds.ListByRound(ctx, round.RoundID)
	if err != nil {
		return domain.Round{}, err
	}
	for _, hold := range holds {
		if hold.Status != domain.HoldStatusAuthorized {
			continue
		}
		if _, err := s.voidHold(ctx, hold, actor.RequestID); err != nil {
			return domain.Round{}, err
		}
	}
	rows, err := s.contributions.ListByRound(ctx, round.RoundID)
	if err != nil {
		return domain.Round{}, err
	}
	for _, c := range rows {
		if c.Voided {
			continue
		}
		if err := s.contributions.MarkVoided(ctx, c.ContributionID, now); err != nil {
			return domain.Round{}, err
		}
	}
	round.Status = domain.RoundStatusCancelled
	round.UpdatedAt = now
	if err := s.rounds.Update(ctx, round); err != nil {
		return domain.Round{}, err
	}
	pool.Status = domain.PoolStatusPaused
	pool.UpdatedAt = now
	if err := s.pools.Update(ctx, pool); err != nil {
		return domain.Round{}, err
	}
	s.logger.WarnContext(ctx, "round cancelled",
		"module", "application",
		"operation", "cancel_round",
		"outcome", "success",
		"pool_id", pool.PoolID,
		"round_id", round.RoundID,
		"reason", reason,
	)
	return round, nil
}

// PoolBalance derives escrow totals for a pool from its ledger.
func (s *Service) PoolBalance(ctx context.Context, actor Actor, poolID string) (contracts.BalanceResponse, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return contracts.BalanceResponse{}, domain.ErrUnauthorized
	}
	poolID = strings.TrimSpace(poolID)
	if poolID == "" {
		return contracts.BalanceResponse{}, domain.ErrInvalidInput
	}
	entries, err := s.ledger.ListByPool(ctx, poolID)
	if err != nil {
		return contracts.BalanceResponse{}, err
	}
	out := contracts.BalanceResponse{PoolID: poolID}
	for _, e := range entries {
		switch e.EntryType {
		case domain.LedgerEntryHold:
			out.HeldBalance += e.Amount
		case domain.LedgerEntryCapture:
			out.CapturedTotal += e.Amount
			out.HeldBalance -= e.Amount
		case domain.LedgerEntryVoid:
			out.HeldBalance -= e.Amount
		case domain.LedgerEntryRelease:
			out.ReleasedTotal += e.Amount
		case domain.LedgerEntryFee:
			out.FeeTotal += e.Amount
		}
	}
	if out.HeldBalance < 0 {
		out.HeldBalance = 0
	}
	return out, nil
}

func (s *Service) currentRound(ctx context.Context, poolID string) (domain.Pool, domain.Round, error) {
	pool, err := s.pools.GetByID(ctx, strings.TrimSpace(poolID))
	if err != nil {
		return domain.Pool{}, domain.Round{}, err
	}
	if pool.CurrentRound < 1 {
		return domain.Pool{}, domain.Round{}, domain.ErrPoolNotActive
	}
	round, err := s.rounds.GetByPoolAndNumber(ctx, pool.PoolID, pool.CurrentRound)
	if err != nil {
		return domain.Pool{}, domain.Round{}, err
	}
	return pool, round, nil
}

// materializeRound creates round n lazily. The payout amount is cached on
// the row but remains a pure function of pool configuration.
func (s *Service) materializeRound(ctx context.Context, pool domain.Pool, number int, scheduledAt time.Time) (domain.Round, error) {
	recipient, err := domain.RecipientFor(pool.Members, number)
	if err != nil {
		return domain.Round{}, err
	}
	now := s.nowFn()
	round := domain.Round{
		RoundID:            uuid.NewString(),
		PoolID:             pool.PoolID,
		Number:             number,
		RecipientMemberID:  recipient.MemberID,
		ScheduledPayoutAt:  scheduledAt,
		Status:             domain.RoundStatusCollecting,
		PayoutProcessed:    false,
		PayoutAmountCached: pool.PayoutAmount(),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.rounds.Create(ctx, round); err != nil {
		return domain.Round{}, err
	}
	return round, nil
}

func (s *Service) getIdempotent(ctx context.Context, key, requestHash string, out any) (bool, error) {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return false, nil
	}
	rec, err := s.idempotency.Get(ctx, key, s.nowFn())
	if err != nil || rec == nil {
		return false, err
	}
	if rec.RequestHash != requestHash {
		return false, domain.ErrIdempotencyConflict
	}
	if len(rec.ResponseBody) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(rec.ResponseBody, out); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *Service) reserveIdempotency(ctx context.Context, key, requestHash string) error {
	if s.idempotency == nil {
		return nil
	}
	now := s.nowFn()
	err := s.idempotency.Reserve(ctx, key, requestHash, now, now.Add(s.cfg.IdempotencyTTL))
	if errors.Is(err, domain.ErrConflict) {
		return domain.ErrIdempotencyConflict
	}
	return err
}

func (s *Service) completeIdempotencyJSON(ctx context.Context, key string, code int, payload any) error {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	b, _ := json.Marshal(payload)
	return s.idempotency.Complete(ctx, key, code, b, s.nowFn())
}

func hashJSON(v any) string {
	b, _ := json.Marshal(v)
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
