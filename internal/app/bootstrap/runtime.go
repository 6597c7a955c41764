package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/pgil256/juntas-seguras-sub008/internal/adapters/cache"
	eventadapter "github.com/pgil256/juntas-seguras-sub008/internal/adapters/events"
	"github.com/pgil256/juntas-seguras-sub008/internal/adapters/gateway"
	grpcadapter "github.com/pgil256/juntas-seguras-sub008/internal/adapters/grpc"
	httpadapter "github.com/pgil256/juntas-seguras-sub008/internal/adapters/http"
	"github.com/pgil256/juntas-seguras-sub008/internal/adapters/memory"
	"github.com/pgil256/juntas-seguras-sub008/internal/adapters/postgres"
	scheduleradapter "github.com/pgil256/juntas-seguras-sub008/internal/adapters/scheduler"
	"github.com/pgil256/juntas-seguras-sub008/internal/adapters/security"
	"github.com/pgil256/juntas-seguras-sub008/internal/application"
	"github.com/pgil256/juntas-seguras-sub008/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	service    *application.Service
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcHealth *health.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	sweeper    *scheduleradapter.PayoutScheduler
	notifier   *eventadapter.AsyncNotifier
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping pool rotation engine",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"environment", cfg.Environment,
	)

	cleanup := func(context.Context) {}

	var (
		pools         ports.PoolRepository
		rounds        ports.RoundRepository
		contributions ports.ContributionRepository
		holds         ports.EscrowHoldRepository
		payouts       ports.PayoutRepository
		ledger        ports.LedgerRepository
		earlyPayouts  ports.EarlyPayoutRepository
		idempotency   ports.IdempotencyRepository
		outboxRepo    ports.OutboxRepository
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("gorm sql db: %w", err)
		}
		if err := postgres.RunMigrations(ctx, db); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		repos := postgres.NewRepositories(db)
		pools = repos.Pools
		rounds = repos.Rounds
		contributions = repos.Contributions
		holds = repos.Holds
		payouts = repos.Payouts
		ledger = repos.Ledger
		earlyPayouts = repos.EarlyPayouts
		idempotency = repos.Idempotency
		outboxRepo = repos.Outbox
		cleanup = func(context.Context) { _ = sqlDB.Close() }
	} else {
		if cfg.Environment == "production" {
			return nil, fmt.Errorf("DATABASE_URL is required in production")
		}
		logger.Warn("no database configured, using in-memory store")
		repos := memory.NewRepositories()
		pools = repos.Pools
		rounds = repos.Rounds
		contributions = repos.Contributions
		holds = repos.Holds
		payouts = repos.Payouts
		ledger = repos.Ledger
		earlyPayouts = repos.EarlyPayouts
		idempotency = repos.Idempotency
		outboxRepo = repos.Outbox
	}

	var locks ports.RoundLocker
	if cfg.RedisURL != "" {
		redisClient, err := cacheadapter.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			cleanup(ctx)
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		locks = cacheadapter.NewRedisRoundLocker(redisClient, cfg.LockLeaseTTL, cfg.LockRetryInterval)
		prevCleanup := cleanup
		cleanup = func(ctx context.Context) {
			_ = redisClient.Close()
			prevCleanup(ctx)
		}
	} else {
		logger.Warn("no redis configured, round locks are process-local")
		locks = memory.NewRoundLocker()
	}

	var approvals ports.ApprovalVerifier
	if cfg.ApprovalCodeHash != "" {
		approvals, err = security.NewBcryptVerifier(cfg.ApprovalCodeHash)
		if err != nil {
			cleanup(ctx)
			return nil, fmt.Errorf("init approval verifier: %w", err)
		}
	} else {
		if cfg.Environment == "production" {
			cleanup(ctx)
			return nil, fmt.Errorf("APPROVAL_CODE_HASH is required in production")
		}
		logger.Warn("using static approval code for local/dev runtime")
		approvals = security.NewStaticVerifier(cfg.ApprovalStaticCode)
	}

	var paymentGateway ports.PaymentGateway
	switch cfg.GatewayMode {
	case "sandbox":
		if cfg.Environment == "production" {
			logger.Warn("sandbox payment gateway explicitly enabled in production; no real funds will move")
		}
		paymentGateway = gateway.NewSandbox()
	case "":
		if cfg.Environment == "production" {
			cleanup(ctx)
			return nil, fmt.Errorf("GATEWAY_MODE must be set explicitly in production")
		}
		logger.Warn("no gateway configured, using sandbox")
		paymentGateway = gateway.NewSandbox()
	default:
		cleanup(ctx)
		return nil, fmt.Errorf("unknown gateway mode %q", cfg.GatewayMode)
	}

	notifier := eventadapter.NewAsyncNotifier(logger, eventadapter.NewLoggingSender(logger), cfg.NotifierWorkers)

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:            cfg.ServiceID,
			PlatformFeeRate:        cfg.PlatformFeeRate,
			EscrowAuthWindow:       cfg.EscrowAuthWindow,
			EscrowAuthWindowMax:    cfg.EscrowAuthWindowMax,
			AuthorizeRetryAttempts: cfg.AuthorizeRetryAttempts,
			AuthorizeRetryBackoff:  cfg.AuthorizeRetryBackoff,
			IdempotencyTTL:         cfg.IdempotencyTTL,
			OutboxFlushBatchSize:   cfg.OutboxBatchSize,
		},
		Pools:         pools,
		Rounds:        rounds,
		Contributions: contributions,
		Holds:         holds,
		Payouts:       payouts,
		Ledger:        ledger,
		EarlyPayouts:  earlyPayouts,
		Idempotency:   idempotency,
		Outbox:        outboxRepo,
		Gateway:       paymentGateway,
		Locks:         locks,
		Notifier:      notifier,
		Approvals:     approvals,
		DomainEvents:  eventadapter.NewLoggingDomainPublisher(logger),
		Analytics:     eventadapter.NewLoggingAnalyticsPublisher(logger),
		Logger:        logger,
	})

	handler := httpadapter.NewHandler(svc)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer, healthSrv := grpcadapter.NewServer()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		cleanup(ctx)
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		service:    svc,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcHealth: healthSrv,
		grpcLis:    lis,
		outbox:     eventadapter.NewOutboxWorker(logger, svc, cfg.OutboxPollInterval),
		sweeper:    scheduleradapter.NewPayoutScheduler(svc, cfg.SweepCronSpec, cfg.SweepBatchLimit, logger),
		notifier:   notifier,
		cleanupFn:  cleanup,
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	r.grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.notifier.Stop()
	r.cleanupFn(shutdownCtx)
	return nil
}

// RunWorker runs the payout sweep scheduler and the outbox flusher until a
// shutdown signal arrives.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := r.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("start payout scheduler: %w", err)
	}

	r.logger.Info("outbox worker started")
	err := r.outbox.Run(ctx)
	r.sweeper.Stop()
	r.notifier.Stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
