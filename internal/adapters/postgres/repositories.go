package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
	"github.com/pgil256/juntas-seguras-sub008/internal/ports"
)

type Repositories struct {
	Pools         ports.PoolRepository
	Rounds        ports.RoundRepository
	Contributions ports.ContributionRepository
	Holds         ports.EscrowHoldRepository
	Payouts       ports.PayoutRepository
	Ledger        ports.LedgerRepository
	EarlyPayouts  ports.EarlyPayoutRepository
	Idempotency   ports.IdempotencyRepository
	Outbox        ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Pools:         &poolRepository{db: db},
		Rounds:        &roundRepository{db: db},
		Contributions: &contributionRepository{db: db},
		Holds:         &escrowHoldRepository{db: db},
		Payouts:       &payoutRepository{db: db},
		Ledger:        &ledgerRepository{db: db},
		EarlyPayouts:  &earlyPayoutRepository{db: db},
		Idempotency:   &idempotencyRepository{db: db},
		Outbox:        &outboxRepository{db: db},
	}
}

type poolRepository struct {
	db *gorm.DB
}

func (r *poolRepository) Create(ctx context.Context, pool domain.Pool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := toPoolModel(pool)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		members := toMemberModels(pool)
		if len(members) == 0 {
			return nil
		}
		if err := tx.Create(&members).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return err
		}
		return nil
	})
}

func (r *poolRepository) GetByID(ctx context.Context, poolID string) (domain.Pool, error) {
	var row poolModel
	if err := r.db.WithContext(ctx).Where("pool_id = ?", poolID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Pool{}, domain.ErrNotFound
		}
		return domain.Pool{}, err
	}
	var members []poolMemberModel
	if err := r.db.WithContext(ctx).
		Where("pool_id = ?", poolID).
		Order("position ASC").
		Find(&members).Error; err != nil {
		return domain.Pool{}, err
	}
	return toDomainPool(row, members), nil
}

// Update writes pool scalar state only. Membership is immutable after
// creation, so member rows are never touched here.
func (r *poolRepository) Update(ctx context.Context, pool domain.Pool) error {
	res := r.db.WithContext(ctx).
		Model(&poolModel{}).
		Where("pool_id = ?", pool.PoolID).
		Updates(map[string]any{
			"name":          pool.Name,
			"current_round": pool.CurrentRound,
			"status":        string(pool.Status),
			"updated_at":    pool.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *poolRepository) ListByStatus(ctx context.Context, status domain.PoolStatus) ([]domain.Pool, error) {
	var rows []poolModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Pool, 0, len(rows))
	for _, row := range rows {
		var members []poolMemberModel
		if err := r.db.WithContext(ctx).
			Where("pool_id = ?", row.PoolID).
			Order("position ASC").
			Find(&members).Error; err != nil {
			return nil, err
		}
		out = append(out, toDomainPool(row, members))
	}
	return out, nil
}

type roundRepository struct {
	db *gorm.DB
}

func (r *roundRepository) Create(ctx context.Context, round domain.Round) error {
	row := toRoundModel(round)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *roundRepository) GetByID(ctx context.Context, roundID string) (domain.Round, error) {
	var row roundModel
	if err := r.db.WithContext(ctx).Where("round_id = ?", roundID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Round{}, domain.ErrNotFound
		}
		return domain.Round{}, err
	}
	return toDomainRound(row), nil
}

func (r *roundRepository) GetByPoolAndNumber(ctx context.Context, poolID string, number int) (domain.Round, error) {
	var row roundModel
	if err := r.db.WithContext(ctx).
		Where("pool_id = ? AND number = ?", poolID, number).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Round{}, domain.ErrNotFound
		}
		return domain.Round{}, err
	}
	return toDomainRound(row), nil
}

func (r *roundRepository) Update(ctx context.Context, round domain.Round) error {
	res := r.db.WithContext(ctx).
		Model(&roundModel{}).
		Where("round_id = ?", round.RoundID).
		Updates(map[string]any{
			"status":           string(round.Status),
			"payout_processed": round.PayoutProcessed,
			"updated_at":       round.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *roundRepository) ListDue(ctx context.Context, before time.Time, limit int) ([]domain.Round, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []roundModel
	if err := r.db.WithContext(ctx).
		Where("scheduled_payout_at <= ?", before).
		Where("payout_processed = FALSE").
		Where("status IN ?", []string{string(domain.RoundStatusCollecting), string(domain.RoundStatusReady)}).
		Order("scheduled_payout_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Round, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainRound(row))
	}
	return out, nil
}

type contributionRepository struct {
	db *gorm.DB
}

func (r *contributionRepository) Append(ctx context.Context, row domain.Contribution) error {
	rec := toContributionModel(row)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		// The partial unique index over (round_id, member_id) rejects a
		// second live contribution from the same member.
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *contributionRepository) GetForMember(ctx context.Context, roundID, memberID string) (domain.Contribution, error) {
	var rec contributionModel
	if err := r.db.WithContext(ctx).
		Where("round_id = ? AND member_id = ? AND voided = FALSE", roundID, memberID).
		Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Contribution{}, domain.ErrNotFound
		}
		return domain.Contribution{}, err
	}
	return toDomainContribution(rec), nil
}

func (r *contributionRepository) ListByRound(ctx context.Context, roundID string) ([]domain.Contribution, error) {
	var rows []contributionModel
	if err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("recorded_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Contribution, 0, len(rows))
	for _, rec := range rows {
		out = append(out, toDomainContribution(rec))
	}
	return out, nil
}

func (r *contributionRepository) MarkVoided(ctx context.Context, contributionID string, at time.Time) error {
	// recorded_at stays untouched: the original contribution time survives
	// the void for audit.
	res := r.db.WithContext(ctx).
		Model(&contributionModel{}).
		Where("contribution_id = ?", contributionID).
		Updates(map[string]any{
			"voided":    true,
			"voided_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type escrowHoldRepository struct {
	db *gorm.DB
}

func (r *escrowHoldRepository) Create(ctx context.Context, row domain.EscrowHold) error {
	rec := toHoldModel(row)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *escrowHoldRepository) GetByID(ctx context.Context, holdID string) (domain.EscrowHold, error) {
	var rec escrowHoldModel
	if err := r.db.WithContext(ctx).Where("hold_id = ?", holdID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.EscrowHold{}, domain.ErrHoldNotFound
		}
		return domain.EscrowHold{}, err
	}
	return toDomainHold(rec), nil
}

func (r *escrowHoldRepository) Update(ctx context.Context, row domain.EscrowHold) error {
	res := r.db.WithContext(ctx).
		Model(&escrowHoldModel{}).
		Where("hold_id = ?", row.HoldID).
		Updates(map[string]any{
			"status":          string(row.Status),
			"gateway_cap_ref": row.GatewayCapRef,
			"released_at":     row.ReleasedAt,
			"updated_at":      row.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrHoldNotFound
	}
	return nil
}

func (r *escrowHoldRepository) ListByRound(ctx context.Context, roundID string) ([]domain.EscrowHold, error) {
	var rows []escrowHoldModel
	if err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("hold_created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.EscrowHold, 0, len(rows))
	for _, rec := range rows {
		out = append(out, toDomainHold(rec))
	}
	return out, nil
}

type payoutRepository struct {
	db *gorm.DB
}

func (r *payoutRepository) Create(ctx context.Context, row domain.Payout) error {
	rec := toPayoutModel(row)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		// round_id is UNIQUE: at most one settlement per round, ever.
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *payoutRepository) GetByRound(ctx context.Context, roundID string) (domain.Payout, error) {
	var rec payoutModel
	if err := r.db.WithContext(ctx).Where("round_id = ?", roundID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Payout{}, domain.ErrNotFound
		}
		return domain.Payout{}, err
	}
	return toDomainPayout(rec), nil
}

type ledgerRepository struct {
	db *gorm.DB
}

func (r *ledgerRepository) Append(ctx context.Context, row domain.LedgerEntry) error {
	rec := ledgerEntryModel{
		EntryID:    row.EntryID,
		PoolID:     row.PoolID,
		RoundID:    row.RoundID,
		MemberID:   row.MemberID,
		EntryType:  string(row.EntryType),
		Amount:     row.Amount,
		OccurredAt: row.OccurredAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *ledgerRepository) ListByPool(ctx context.Context, poolID string) ([]domain.LedgerEntry, error) {
	var rows []ledgerEntryModel
	if err := r.db.WithContext(ctx).
		Where("pool_id = ?", poolID).
		Order("occurred_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.LedgerEntry, 0, len(rows))
	for _, rec := range rows {
		out = append(out, domain.LedgerEntry{
			EntryID:    rec.EntryID,
			PoolID:     rec.PoolID,
			RoundID:    rec.RoundID,
			MemberID:   rec.MemberID,
			EntryType:  domain.LedgerEntryType(rec.EntryType),
			Amount:     rec.Amount,
			OccurredAt: rec.OccurredAt,
		})
	}
	return out, nil
}

type earlyPayoutRepository struct {
	db *gorm.DB
}

func (r *earlyPayoutRepository) Create(ctx context.Context, row domain.EarlyPayoutRequest) error {
	rec := toEarlyPayoutModel(row)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *earlyPayoutRepository) Update(ctx context.Context, row domain.EarlyPayoutRequest) error {
	res := r.db.WithContext(ctx).
		Model(&earlyPayoutModel{}).
		Where("request_id = ?", row.RequestID).
		Updates(map[string]any{
			"outcome":     string(row.Outcome),
			"deny_reason": row.DenyReason,
			"resolved_at": row.ResolvedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *earlyPayoutRepository) ListByRound(ctx context.Context, roundID string) ([]domain.EarlyPayoutRequest, error) {
	var rows []earlyPayoutModel
	if err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("requested_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.EarlyPayoutRequest, 0, len(rows))
	for _, rec := range rows {
		out = append(out, toDomainEarlyPayout(rec))
	}
	return out, nil
}
