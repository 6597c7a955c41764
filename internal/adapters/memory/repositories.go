// Package memory provides map-backed repositories for tests and local runs.
// Production deployments use the postgres adapter; the engine itself never
// assumes in-process state survives a restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
	"github.com/pgil256/juntas-seguras-sub008/internal/ports"
)

type Repositories struct {
	Pools         *PoolRepository
	Rounds        *RoundRepository
	Contributions *ContributionRepository
	Holds         *EscrowHoldRepository
	Payouts       *PayoutRepository
	Ledger        *LedgerRepository
	EarlyPayouts  *EarlyPayoutRepository
	Idempotency   *IdempotencyRepository
	Outbox        *OutboxRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		Pools:         &PoolRepository{rows: map[string]domain.Pool{}},
		Rounds:        &RoundRepository{rows: map[string]domain.Round{}},
		Contributions: &ContributionRepository{rows: map[string]domain.Contribution{}, byRoundMember: map[string]string{}},
		Holds:         &EscrowHoldRepository{rows: map[string]domain.EscrowHold{}},
		Payouts:       &PayoutRepository{byRound: map[string]domain.Payout{}},
		Ledger:        &LedgerRepository{},
		EarlyPayouts:  &EarlyPayoutRepository{rows: map[string]domain.EarlyPayoutRequest{}},
		Idempotency:   &IdempotencyRepository{rows: map[string]ports.IdempotencyRecord{}},
		Outbox:        &OutboxRepository{rows: map[string]ports.OutboxRecord{}},
	}
}

type PoolRepository struct {
	mu   sync.Mutex
	rows map[string]domain.Pool
}

func (r *PoolRepository) Create(_ context.Context, pool domain.Pool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[pool.PoolID]; ok {
		return domain.ErrConflict
	}
	r.rows[pool.PoolID] = pool
	return nil
}

func (r *PoolRepository) GetByID(_ context.Context, poolID string) (domain.Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pool, ok := r.rows[strings.TrimSpace(poolID)]
	if !ok {
		return domain.Pool{}, domain.ErrNotFound
	}
	return pool, nil
}

func (r *PoolRepository) Update(_ context.Context, pool domain.Pool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[pool.PoolID]; !ok {
		return domain.ErrNotFound
	}
	r.rows[pool.PoolID] = pool
	return nil
}

func (r *PoolRepository) ListByStatus(_ context.Context, status domain.PoolStatus) ([]domain.Pool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Pool, 0)
	for _, p := range r.rows {
		if p.Status == status {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PoolID < out[j].PoolID })
	return out, nil
}

type RoundRepository struct {
	mu   sync.Mutex
	rows map[string]domain.Round
}

func (r *RoundRepository) Create(_ context.Context, round domain.Round) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[round.RoundID]; ok {
		return domain.ErrConflict
	}
	for _, existing := range r.rows {
		if existing.PoolID == round.PoolID && existing.Number == round.Number {
			return domain.ErrConflict
		}
	}
	r.rows[round.RoundID] = round
	return nil
}

func (r *RoundRepository) GetByID(_ context.Context, roundID string) (domain.Round, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	round, ok := r.rows[strings.TrimSpace(roundID)]
	if !ok {
		return domain.Round{}, domain.ErrNotFound
	}
	return round, nil
}

func (r *RoundRepository) GetByPoolAndNumber(_ context.Context, poolID string, number int) (domain.Round, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, round := range r.rows {
		if round.PoolID == poolID && round.Number == number {
			return round, nil
		}
	}
	return domain.Round{}, domain.ErrNotFound
}

func (r *RoundRepository) Update(_ context.Context, round domain.Round) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[round.RoundID]; !ok {
		return domain.ErrNotFound
	}
	r.rows[round.RoundID] = round
	return nil
}

func (r *RoundRepository) ListDue(_ context.Context, before time.Time, limit int) ([]domain.Round, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	out := make([]domain.Round, 0)
	for _, round := range r.rows {
		if round.PayoutProcessed {
			continue
		}
		if round.Status != domain.RoundStatusCollecting && round.Status != domain.RoundStatusReady {
			continue
		}
		if round.ScheduledPayoutAt.After(before) {
			continue
		}
		out = append(out, round)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledPayoutAt.Before(out[j].ScheduledPayoutAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type ContributionRepository struct {
	mu            sync.Mutex
	rows          map[string]domain.Contribution
	byRoundMember map[string]string
}

func contributionKey(roundID, memberID string) string { return roundID + "|" + memberID }

func (r *ContributionRepository) Append(_ context.Context, row domain.Contribution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := contributionKey(row.RoundID, row.MemberID)
	if existingID, ok := r.byRoundMember[key]; ok {
		if existing := r.rows[existingID]; !existing.Voided {
			return domain.ErrConflict
		}
	}
	r.rows[row.ContributionID] = row
	r.byRoundMember[key] = row.ContributionID
	return nil
}

func (r *ContributionRepository) GetForMember(_ context.Context, roundID, memberID string) (domain.Contribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byRoundMember[contributionKey(roundID, memberID)]
	if !ok {
		return domain.Contribution{}, domain.ErrNotFound
	}
	return r.rows[id], nil
}

func (r *ContributionRepository) ListByRound(_ context.Context, roundID string) ([]domain.Contribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Contribution, 0)
	for _, c := range r.rows {
		if c.RoundID == roundID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func (r *ContributionRepository) MarkVoided(_ context.Context, contributionID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[contributionID]
	if !ok {
		return domain.ErrNotFound
	}
	c.Voided = true
	c.VoidedAt = &at
	r.rows[contributionID] = c
	return nil
}

type EscrowHoldRepository struct {
	mu   sync.Mutex
	rows map[string]domain.EscrowHold
}

func (r *EscrowHoldRepository) Create(_ context.Context, row domain.EscrowHold) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[row.HoldID]; ok {
		return domain.ErrConflict
	}
	r.rows[row.HoldID] = row
	return nil
}

func (r *EscrowHoldRepository) GetByID(_ context.Context, holdID string) (domain.EscrowHold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[strings.TrimSpace(holdID)]
	if !ok {
		return domain.EscrowHold{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *EscrowHoldRepository) Update(_ context.Context, row domain.EscrowHold) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[row.HoldID]; !ok {
		return domain.ErrNotFound
	}
	r.rows[row.HoldID] = row
	return nil
}

func (r *EscrowHoldRepository) ListByRound(_ context.Context, roundID string) ([]domain.EscrowHold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EscrowHold, 0)
	for _, h := range r.rows {
		if h.RoundID == roundID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HoldCreatedAt.Before(out[j].HoldCreatedAt) })
	return out, nil
}

type PayoutRepository struct {
	mu      sync.Mutex
	byRound map[string]domain.Payout
}

func (r *PayoutRepository) Create(_ context.Context, row domain.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byRound[row.RoundID]; ok {
		return domain.ErrConflict
	}
	r.byRound[row.RoundID] = row
	return nil
}

func (r *PayoutRepository) GetByRound(_ context.Context, roundID string) (domain.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.byRound[strings.TrimSpace(roundID)]
	if !ok {
		return domain.Payout{}, domain.ErrNotFound
	}
	return row, nil
}

type LedgerRepository struct {
	mu   sync.Mutex
	rows []domain.LedgerEntry
}

func (r *LedgerRepository) Append(_ context.Context, row domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, row)
	return nil
}

func (r *LedgerRepository) ListByPool(_ context.Context, poolID string) ([]domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.LedgerEntry, 0)
	for _, row := range r.rows {
		if row.PoolID == strings.TrimSpace(poolID) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

type EarlyPayoutRepository struct {
	mu   sync.Mutex
	rows map[string]domain.EarlyPayoutRequest
}

func (r *EarlyPayoutRepository) Create(_ context.Context, row domain.EarlyPayoutRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[row.RequestID]; ok {
		return domain.ErrConflict
	}
	r.rows[row.RequestID] = row
	return nil
}

func (r *EarlyPayoutRepository) Update(_ context.Context, row domain.EarlyPayoutRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[row.RequestID]; !ok {
		return domain.ErrNotFound
	}
	r.rows[row.RequestID] = row
	return nil
}

func (r *EarlyPayoutRepository) ListByRound(_ context.Context, roundID string) ([]domain.EarlyPayoutRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EarlyPayoutRequest, 0)
	for _, row := range r.rows {
		if row.RoundID == roundID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

type IdempotencyRepository struct {
	mu   sync.Mutex
	rows map[string]ports.IdempotencyRecord
}

func (r *IdempotencyRepository) Get(_ context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[key]
	if !ok {
		return nil, nil
	}
	if now.After(row.ExpiresAt) {
		delete(r.rows, key)
		return nil, nil
	}
	c := row
	c.ResponseBody = append([]byte(nil), row.ResponseBody...)
	return &c, nil
}

func (r *IdempotencyRepository) Reserve(_ context.Context, key, requestHash string, now, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[key]; ok && now.Before(row.ExpiresAt) {
		return domain.ErrConflict
	}
	r.rows[key] = ports.IdempotencyRecord{Key: key, RequestHash: requestHash, ExpiresAt: expiresAt}
	return nil
}

func (r *IdempotencyRepository) Complete(_ context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[key]
	if !ok {
		return domain.ErrNotFound
	}
	row.ResponseCode = responseCode
	row.ResponseBody = append([]byte(nil), responseBody...)
	r.rows[key] = row
	return nil
}

type OutboxRepository struct {
	mu    sync.Mutex
	rows  map[string]ports.OutboxRecord
	order []string
}

func (r *OutboxRepository) Enqueue(_ context.Context, row ports.OutboxRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[row.RecordID]; ok {
		return domain.ErrConflict
	}
	r.rows[row.RecordID] = row
	r.order = append(r.order, row.RecordID)
	return nil
}

func (r *OutboxRepository) ListPending(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	out := make([]ports.OutboxRecord, 0, limit)
	for _, id := range r.order {
		row, ok := r.rows[id]
		if !ok || row.SentAt != nil {
			continue
		}
		out = append(out, row)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, recordID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	row.SentAt = &at
	r.rows[recordID] = row
	return nil
}
