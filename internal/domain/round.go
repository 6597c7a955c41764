package domain

import "time"

type RoundStatus string

const (
	RoundStatusCollecting RoundStatus = "collecting"
	RoundStatusReady      RoundStatus = "ready"
	RoundStatusReleased   RoundStatus = "released"
	RoundStatusCancelled  RoundStatus = "cancelled"
	// RoundStatusHalted marks a consistency failure; the round refuses all
	// further mutation until an operator intervenes.
	RoundStatusHalted RoundStatus = "halted"
)

// Round is one cycle of a pool. Rounds are materialized lazily as the pool
// advances, never pre-generated for the whole pool.
type Round struct {
	RoundID            string      `json:"round_id"`
	PoolID             string      `json:"pool_id"`
	Number             int         `json:"number"`
	RecipientMemberID  string      `json:"recipient_member_id"`
	ScheduledPayoutAt  time.Time   `json:"scheduled_payout_at"`
	Status             RoundStatus `json:"status"`
	PayoutProcessed    bool        `json:"payout_processed"`
	PayoutAmountCached float64     `json:"payout_amount"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// Contribution is immutable once its escrow hold reaches released; it is
// never deleted. EscrowID is empty for direct payments that skip escrow.
type Contribution struct {
	ContributionID string     `json:"contribution_id"`
	RoundID        string     `json:"round_id"`
	PoolID         string     `json:"pool_id"`
	MemberID       string     `json:"member_id"`
	Amount         float64    `json:"amount"`
	EscrowID       string     `json:"escrow_id,omitempty"`
	Voided         bool       `json:"voided"`
	RecordedAt     time.Time  `json:"recorded_at"`
	VoidedAt       *time.Time `json:"voided_at,omitempty"`
}

type LedgerEntryType string

const (
	LedgerEntryHold    LedgerEntryType = "hold"
	LedgerEntryCapture LedgerEntryType = "capture"
	LedgerEntryRelease LedgerEntryType = "release"
	LedgerEntryVoid    LedgerEntryType = "void"
	LedgerEntryFee     LedgerEntryType = "fee"
)

type LedgerEntry struct {
	EntryID    string          `json:"entry_id"`
	PoolID     string          `json:"pool_id"`
	RoundID    string          `json:"round_id"`
	MemberID   string          `json:"member_id,omitempty"`
	EntryType  LedgerEntryType `json:"entry_type"`
	Amount     float64         `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}
