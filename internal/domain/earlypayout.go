package domain

import "time"

type EarlyPayoutOutcome string

const (
	EarlyPayoutPending  EarlyPayoutOutcome = "pending"
	EarlyPayoutApproved EarlyPayoutOutcome = "approved"
	EarlyPayoutDenied   EarlyPayoutOutcome = "denied"
)

const (
	ConnectStatusOK             = "ok"
	ConnectStatusNoPayoutMethod = "no_payout_method"
)

type EarlyPayoutRequest struct {
	RequestID   string             `json:"request_id"`
	PoolID      string             `json:"pool_id"`
	RoundID     string             `json:"round_id"`
	RequestedBy string             `json:"requested_by"`
	Reason      string             `json:"reason"`
	Outcome     EarlyPayoutOutcome `json:"outcome"`
	DenyReason  string             `json:"deny_reason,omitempty"`
	RequestedAt time.Time          `json:"requested_at"`
	ResolvedAt  *time.Time         `json:"resolved_at,omitempty"`
}

// EarlyPayoutStatus is a policy result, not an error: callers always receive
// a structured answer with a human-readable reason.
type EarlyPayoutStatus struct {
	Allowed               bool     `json:"allowed"`
	Reason                string   `json:"reason"`
	MissingContributions  []string `json:"missing_contributions"`
	RecipientConnectState string   `json:"recipient_connect_status"`
}
