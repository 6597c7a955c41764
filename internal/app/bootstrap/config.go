package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID   string
	Environment string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	MaxDBConns  int32
	RedisURL    string

	// GatewayMode selects the payment gateway implementation. Only "sandbox"
	// exists today; production refuses to start without an explicit value so
	// the fake gateway is never wired by accident.
	GatewayMode string

	PlatformFeeRate        float64
	EscrowAuthWindow       time.Duration
	EscrowAuthWindowMax    time.Duration
	AuthorizeRetryAttempts int
	AuthorizeRetryBackoff  time.Duration

	IdempotencyTTL time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	SweepCronSpec   string
	SweepBatchLimit int

	LockLeaseTTL      time.Duration
	LockRetryInterval time.Duration

	NotifierWorkers int

	// ApprovalCodeHash is the bcrypt hash of the operator approval code for
	// early payouts. ApprovalStaticCode is the development fallback.
	ApprovalCodeHash   string
	ApprovalStaticCode string
}

type configFile struct {
	Service struct {
		ID          string `yaml:"id"`
		Environment string `yaml:"environment"`
		HTTPPort    int    `yaml:"http_port"`
		GRPCPort    int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		DatabaseURL string `yaml:"database_url"`
		MaxDBConns  int    `yaml:"max_db_conns"`
		RedisURL    string `yaml:"redis_url"`
		GatewayMode string `yaml:"gateway_mode"`
	} `yaml:"dependencies"`
	Policy struct {
		PlatformFeeRate         float64 `yaml:"platform_fee_rate"`
		EscrowAuthWindowDays    int     `yaml:"escrow_auth_window_days"`
		EscrowAuthWindowMaxDays int     `yaml:"escrow_auth_window_max_days"`
		AuthorizeRetryAttempts  int     `yaml:"authorize_retry_attempts"`
		AuthorizeRetryBackoffMS int     `yaml:"authorize_retry_backoff_ms"`
		ApprovalCodeHash        string  `yaml:"approval_code_hash"`
		ApprovalStaticCode      string  `yaml:"approval_static_code"`
	} `yaml:"policy"`
	Workers struct {
		SweepCronSpec         string `yaml:"sweep_cron_spec"`
		SweepBatchLimit       int    `yaml:"sweep_batch_limit"`
		OutboxPollSeconds     int    `yaml:"outbox_poll_seconds"`
		OutboxBatchSize       int    `yaml:"outbox_batch_size"`
		NotifierWorkers       int    `yaml:"notifier_workers"`
		LockLeaseSeconds      int    `yaml:"lock_lease_seconds"`
		LockRetryMilliseconds int    `yaml:"lock_retry_ms"`
		IdempotencyTTLHours   int    `yaml:"idempotency_ttl_hours"`
	} `yaml:"workers"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:              "Pool-Rotation-Engine",
		Environment:            "development",
		HTTPPort:               8080,
		GRPCPort:               9090,
		MaxDBConns:             10,
		PlatformFeeRate:        0,
		EscrowAuthWindow:       7 * 24 * time.Hour,
		EscrowAuthWindowMax:    30 * 24 * time.Hour,
		AuthorizeRetryAttempts: 3,
		AuthorizeRetryBackoff:  200 * time.Millisecond,
		IdempotencyTTL:         7 * 24 * time.Hour,
		OutboxPollInterval:     2 * time.Second,
		OutboxBatchSize:        100,
		SweepCronSpec:          "*/30 * * * * *",
		SweepBatchLimit:        50,
		LockLeaseTTL:           30 * time.Second,
		LockRetryInterval:      50 * time.Millisecond,
		NotifierWorkers:        8,
		ApprovalStaticCode:     "000000",
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.Environment != "" {
			cfg.Environment = strings.ToLower(f.Service.Environment)
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		cfg.DatabaseURL = f.Dependencies.DatabaseURL
		if f.Dependencies.MaxDBConns > 0 {
			cfg.MaxDBConns = int32(f.Dependencies.MaxDBConns)
		}
		cfg.RedisURL = f.Dependencies.RedisURL
		if f.Dependencies.GatewayMode != "" {
			cfg.GatewayMode = strings.ToLower(f.Dependencies.GatewayMode)
		}
		if f.Policy.PlatformFeeRate > 0 {
			cfg.PlatformFeeRate = f.Policy.PlatformFeeRate
		}
		if f.Policy.EscrowAuthWindowDays > 0 {
			cfg.EscrowAuthWindow = time.Duration(f.Policy.EscrowAuthWindowDays) * 24 * time.Hour
		}
		if f.Policy.EscrowAuthWindowMaxDays > 0 {
			cfg.EscrowAuthWindowMax = time.Duration(f.Policy.EscrowAuthWindowMaxDays) * 24 * time.Hour
		}
		if f.Policy.AuthorizeRetryAttempts > 0 {
			cfg.AuthorizeRetryAttempts = f.Policy.AuthorizeRetryAttempts
		}
		if f.Policy.AuthorizeRetryBackoffMS > 0 {
			cfg.AuthorizeRetryBackoff = time.Duration(f.Policy.AuthorizeRetryBackoffMS) * time.Millisecond
		}
		if f.Policy.ApprovalCodeHash != "" {
			cfg.ApprovalCodeHash = f.Policy.ApprovalCodeHash
		}
		if f.Policy.ApprovalStaticCode != "" {
			cfg.ApprovalStaticCode = f.Policy.ApprovalStaticCode
		}
		if f.Workers.SweepCronSpec != "" {
			cfg.SweepCronSpec = f.Workers.SweepCronSpec
		}
		if f.Workers.SweepBatchLimit > 0 {
			cfg.SweepBatchLimit = f.Workers.SweepBatchLimit
		}
		if f.Workers.OutboxPollSeconds > 0 {
			cfg.OutboxPollInterval = time.Duration(f.Workers.OutboxPollSeconds) * time.Second
		}
		if f.Workers.OutboxBatchSize > 0 {
			cfg.OutboxBatchSize = f.Workers.OutboxBatchSize
		}
		if f.Workers.NotifierWorkers > 0 {
			cfg.NotifierWorkers = f.Workers.NotifierWorkers
		}
		if f.Workers.LockLeaseSeconds > 0 {
			cfg.LockLeaseTTL = time.Duration(f.Workers.LockLeaseSeconds) * time.Second
		}
		if f.Workers.LockRetryMilliseconds > 0 {
			cfg.LockRetryInterval = time.Duration(f.Workers.LockRetryMilliseconds) * time.Millisecond
		}
		if f.Workers.IdempotencyTTLHours > 0 {
			cfg.IdempotencyTTL = time.Duration(f.Workers.IdempotencyTTLHours) * time.Hour
		}
	}

	cfg.ServiceID = envOrDefault("SERVICE_ID", cfg.ServiceID)
	cfg.Environment = strings.ToLower(envOrDefault("ENVIRONMENT", cfg.Environment))
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.MaxDBConns = int32(envInt("MAX_DB_CONNS", int(cfg.MaxDBConns)))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.GatewayMode = strings.ToLower(envOrDefault("GATEWAY_MODE", cfg.GatewayMode))
	cfg.PlatformFeeRate = envFloat("PLATFORM_FEE_RATE", cfg.PlatformFeeRate)
	cfg.EscrowAuthWindow = time.Duration(envInt("ESCROW_AUTH_WINDOW_DAYS", int(cfg.EscrowAuthWindow/(24*time.Hour)))) * 24 * time.Hour
	cfg.EscrowAuthWindowMax = time.Duration(envInt("ESCROW_AUTH_WINDOW_MAX_DAYS", int(cfg.EscrowAuthWindowMax/(24*time.Hour)))) * 24 * time.Hour
	cfg.AuthorizeRetryAttempts = envInt("AUTHORIZE_RETRY_ATTEMPTS", cfg.AuthorizeRetryAttempts)
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.SweepCronSpec = envOrDefault("SWEEP_CRON_SPEC", cfg.SweepCronSpec)
	cfg.SweepBatchLimit = envInt("SWEEP_BATCH_LIMIT", cfg.SweepBatchLimit)
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.NotifierWorkers = envInt("NOTIFIER_WORKERS", cfg.NotifierWorkers)
	cfg.ApprovalCodeHash = envOrDefault("APPROVAL_CODE_HASH", cfg.ApprovalCodeHash)
	cfg.ApprovalStaticCode = envOrDefault("APPROVAL_STATIC_CODE", cfg.ApprovalStaticCode)

	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(name string, fallback float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
