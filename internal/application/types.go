package application

import (
	"log/slog"
	"time"

	"github.com/pgil256/juntas-seguras-sub008/internal/ports"
)

type Config struct {
	ServiceName string

	// PlatformFeeRate is the fraction of the gross payout retained by the
	// platform. Zero means no fee. The fee is subtracted from the release
	// amount only, never from individual contributions.
	PlatformFeeRate float64

	// EscrowAuthWindow is how long an authorization stays capturable.
	// EscrowAuthWindowMax is the provider-imposed ceiling; the effective
	// window is clamped to it. Both are policy parameters, not literals.
	EscrowAuthWindow    time.Duration
	EscrowAuthWindowMax time.Duration

	// Authorize is the only gateway step safe to retry (no funds moved yet).
	AuthorizeRetryAttempts int
	AuthorizeRetryBackoff  time.Duration

	IdempotencyTTL       time.Duration
	OutboxFlushBatchSize int
}

type Actor struct {
	SubjectID      string
	Role           string
	RequestID      string
	IdempotencyKey string
}

func (a Actor) Operator() bool {
	return a.Role == "operator" || a.Role == "admin"
}

type Service struct {
	cfg Config

	pools         ports.PoolRepository
	rounds        ports.RoundRepository
	contributions ports.ContributionRepository
	holds         ports.EscrowHoldRepository
	payouts       ports.PayoutRepository
	ledger        ports.LedgerRepository
	earlyPayouts  ports.EarlyPayoutRepository
	idempotency   ports.IdempotencyRepository
	outbox        ports.OutboxRepository

	gateway   ports.PaymentGateway
	locks     ports.RoundLocker
	notifier  ports.NotificationSink
	approvals ports.ApprovalVerifier

	domainEvents ports.DomainPublisher
	analytics    ports.AnalyticsPublisher

	logger *slog.Logger
	nowFn  func() time.Time
}

type Dependencies struct {
	Config Config

	Pools         ports.PoolRepository
	Rounds        ports.RoundRepository
	Contributions ports.ContributionRepository
	Holds         ports.EscrowHoldRepository
	Payouts       ports.PayoutRepository
	Ledger        ports.LedgerRepository
	EarlyPayouts  ports.EarlyPayoutRepository
	Idempotency   ports.IdempotencyRepository
	Outbox        ports.OutboxRepository

	Gateway   ports.PaymentGateway
	Locks     ports.RoundLocker
	Notifier  ports.NotificationSink
	Approvals ports.ApprovalVerifier

	DomainEvents ports.DomainPublisher
	Analytics    ports.AnalyticsPublisher

	Logger *slog.Logger
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "Pool-Rotation-Engine"
	}
	if cfg.EscrowAuthWindow <= 0 {
		cfg.EscrowAuthWindow = 7 * 24 * time.Hour
	}
	if cfg.EscrowAuthWindowMax <= 0 {
		cfg.EscrowAuthWindowMax = 30 * 24 * time.Hour
	}
	if cfg.EscrowAuthWindow > cfg.EscrowAuthWindowMax {
		cfg.EscrowAuthWindow = cfg.EscrowAuthWindowMax
	}
	if cfg.AuthorizeRetryAttempts <= 0 {
		cfg.AuthorizeRetryAttempts = 3
	}
	if cfg.AuthorizeRetryBackoff <= 0 {
		cfg.AuthorizeRetryBackoff = 200 * time.Millisecond
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 7 * 24 * time.Hour
	}
	if cfg.OutboxFlushBatchSize <= 0 {
		cfg.OutboxFlushBatchSize = 100
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:           cfg,
		pools:         deps.Pools,
		rounds:        deps.Rounds,
		contributions: deps.Contributions,
		holds:         deps.Holds,
		payouts:       deps.Payouts,
		ledger:        deps.Ledger,
		earlyPayouts:  deps.EarlyPayouts,
		idempotency:   deps.Idempotency,
		outbox:        deps.Outbox,
		gateway:       deps.Gateway,
		locks:         deps.Locks,
		notifier:      deps.Notifier,
		approvals:     deps.Approvals,
		domainEvents:  deps.DomainEvents,
		analytics:     deps.Analytics,
		logger:        logger,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}
