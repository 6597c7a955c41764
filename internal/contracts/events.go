package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type ContributionReceivedPayload struct {
	PoolID      string  `json:"pool_id"`
	RoundID     string  `json:"round_id"`
	MemberID    string  `json:"member_id"`
	Amount      float64 `json:"amount"`
	EscrowID    string  `json:"escrow_id,omitempty"`
	AllReceived bool    `json:"all_received"`
	RecordedAt  string  `json:"recorded_at"`
}

type RoundReadyPayload struct {
	PoolID      string  `json:"pool_id"`
	RoundID     string  `json:"round_id"`
	RoundNumber int     `json:"round_number"`
	RecipientID string  `json:"recipient_id"`
	Amount      float64 `json:"amount"`
}

type PayoutReleasedPayload struct {
	PoolID      string  `json:"pool_id"`
	RoundID     string  `json:"round_id"`
	RecipientID string  `json:"recipient_id"`
	GrossAmount float64 `json:"gross_amount"`
	PlatformFee float64 `json:"platform_fee"`
	NetAmount   float64 `json:"net_amount"`
	Early       bool    `json:"early"`
	ReleasedAt  string  `json:"released_at"`
}

type PayoutReconciliationPayload struct {
	PoolID    string `json:"pool_id"`
	RoundID   string `json:"round_id"`
	HoldID    string `json:"hold_id,omitempty"`
	LastState string `json:"last_state"`
	Detail    string `json:"detail"`
}

type EarlyPayoutResolvedPayload struct {
	PoolID      string `json:"pool_id"`
	RoundID     string `json:"round_id"`
	RequestID   string `json:"request_id"`
	RequestedBy string `json:"requested_by"`
	Outcome     string `json:"outcome"`
	Reason      string `json:"reason,omitempty"`
}

type PoolCompletedPayload struct {
	PoolID      string `json:"pool_id"`
	TotalRounds int    `json:"total_rounds"`
	CompletedAt string `json:"completed_at"`
}

type EscrowHoldStatePayload struct {
	PoolID   string  `json:"pool_id"`
	RoundID  string  `json:"round_id"`
	HoldID   string  `json:"hold_id"`
	MemberID string  `json:"member_id"`
	Amount   float64 `json:"amount"`
	State    string  `json:"state"`
}

// Notification is the fire-and-forget member-facing message handed to the
// notification sink.
type Notification struct {
	Kind       string         `json:"kind"`
	PoolID     string         `json:"pool_id"`
	RoundID    string         `json:"round_id,omitempty"`
	MemberID   string         `json:"member_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

const (
	NotifyContributionReceived = "ContributionReceived"
	NotifyPayoutReleased       = "PayoutReleased"
	NotifyEarlyPayoutDenied    = "EarlyPayoutDenied"
)
