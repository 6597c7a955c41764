package ports

import (
	"context"
	"time"

	"github.com/pgil256/juntas-seguras-sub008/internal/contracts"
	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
)

type PoolRepository interface {
	Create(ctx context.Context, pool domain.Pool) error
	GetByID(ctx context.Context, poolID string) (domain.Pool, error)
	Update(ctx context.Context, pool domain.Pool) error
	ListByStatus(ctx context.Context, status domain.PoolStatus) ([]domain.Pool, error)
}

type RoundRepository interface {
	Create(ctx context.Context, round domain.Round) error
	GetByID(ctx context.Context, roundID string) (domain.Round, error)
	GetByPoolAndNumber(ctx context.Context, poolID string, number int) (domain.Round, error)
	Update(ctx context.Context, round domain.Round) error
	ListDue(ctx context.Context, before time.Time, limit int) ([]domain.Round, error)
}

type ContributionRepository interface {
	Append(ctx context.Context, row domain.Contribution) error
	GetForMember(ctx context.Context, roundID, memberID string) (domain.Contribution, error)
	ListByRound(ctx context.Context, roundID string) ([]domain.Contribution, error)
	MarkVoided(ctx context.Context, contributionID string, at time.Time) error
}

type EscrowHoldRepository interface {
	Create(ctx context.Context, row domain.EscrowHold) error
	GetByID(ctx context.Context, holdID string) (domain.EscrowHold, error)
	Update(ctx context.Context, row domain.EscrowHold) error
	ListByRound(ctx context.Context, roundID string) ([]domain.EscrowHold, error)
}

type PayoutRepository interface {
	Create(ctx context.Context, row domain.Payout) error
	GetByRound(ctx context.Context, roundID string) (domain.Payout, error)
}

type LedgerRepository interface {
	Append(ctx context.Context, row domain.LedgerEntry) error
	ListByPool(ctx context.Context, poolID string) ([]domain.LedgerEntry, error)
}

type EarlyPayoutRepository interface {
	Create(ctx context.Context, row domain.EarlyPayoutRequest) error
	Update(ctx context.Context, row domain.EarlyPayoutRequest) error
	ListByRound(ctx context.Context, roundID string) ([]domain.EarlyPayoutRequest, error)
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, now, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
}

type OutboxRecord struct {
	RecordID   string
	EventClass string
	Envelope   contracts.EventEnvelope
	CreatedAt  time.Time
	SentAt     *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, record OutboxRecord) error
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, recordID string, at time.Time) error
}
