package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper is the slice of the application layer the cron worker drives.
type Sweeper interface {
	SweepDueRounds(ctx context.Context, limit int) (int, error)
}

// PayoutScheduler runs the due-round sweep on a cron cadence. Each run is
// bounded so a stalled gateway cannot pile up overlapping sweeps.
type PayoutScheduler struct {
	cron       *cron.Cron
	sweeper    Sweeper
	spec       string
	batchLimit int
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewPayoutScheduler(sweeper Sweeper, spec string, batchLimit int, logger *slog.Logger) *PayoutScheduler {
	if spec == "" {
		spec = "*/30 * * * * *"
	}
	if batchLimit <= 0 {
		batchLimit = 50
	}
	return &PayoutScheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		sweeper:    sweeper,
		spec:       spec,
		batchLimit: batchLimit,
		runTimeout: 60 * time.Second,
		logger:     logger,
	}
}

func (s *PayoutScheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
		fired, err := s.sweeper.SweepDueRounds(runCtx, s.batchLimit)
		if err != nil {
			s.logger.ErrorContext(runCtx, "payout sweep failed",
				"module", "scheduler",
				"layer", "adapter",
				"operation", "sweep_due_rounds",
				"outcome", "failure",
				"error", err,
			)
			return
		}
		if fired > 0 {
			s.logger.InfoContext(runCtx, "payout sweep completed",
				"module", "scheduler",
				"layer", "adapter",
				"operation", "sweep_due_rounds",
				"outcome", "success",
				"rounds_fired", fired,
			)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.InfoContext(ctx, "payout scheduler started",
		"module", "scheduler",
		"layer", "adapter",
		"operation", "start",
		"outcome", "success",
		"spec", s.spec,
	)
	return nil
}

// Stop halts scheduling and waits for any in-flight sweep to finish.
func (s *PayoutScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("payout scheduler stopped",
		"module", "scheduler",
		"layer", "adapter",
		"operation", "stop",
		"outcome", "success",
	)
}
