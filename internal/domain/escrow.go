package domain

import "time"

type HoldStatus string

const (
	HoldStatusAuthorized HoldStatus = "authorized"
	HoldStatusCaptured   HoldStatus = "captured"
	// HoldStatusReleasePending is set before the gateway payout call. A crash
	// after the marker and before confirmation leaves the hold here: unknown,
	// requires reconciliation, never safe to retry blindly.
	HoldStatusReleasePending HoldStatus = "release_pending"
	HoldStatusReleased       HoldStatus = "released"
	HoldStatusVoided         HoldStatus = "voided"
	HoldStatusExpired        HoldStatus = "expired"
)

// EscrowHold tracks one member's held funds for a round through the
// authorize/capture/release lifecycle.
type EscrowHold struct {
	HoldID          string     `json:"hold_id"`
	ContributionID  string     `json:"contribution_id"`
	PoolID          string     `json:"pool_id"`
	RoundID         string     `json:"round_id"`
	MemberID        string     `json:"member_id"`
	Amount          float64    `json:"amount"`
	Status          HoldStatus `json:"status"`
	GatewayHoldRef  string     `json:"gateway_hold_ref"`
	GatewayCapRef   string     `json:"gateway_capture_ref,omitempty"`
	HoldCreatedAt   time.Time  `json:"hold_created_at"`
	ReleaseDeadline time.Time  `json:"release_deadline"`
	ReleasedAt      *time.Time `json:"released_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (h EscrowHold) Expired(now time.Time) bool {
	return h.Status == HoldStatusAuthorized && now.After(h.ReleaseDeadline)
}

type Payout struct {
	PayoutID      string       `json:"payout_id"`
	PoolID        string       `json:"pool_id"`
	RoundID       string       `json:"round_id"`
	RecipientID   string       `json:"recipient_id"`
	GrossAmount   float64      `json:"gross_amount"`
	PlatformFee   float64      `json:"platform_fee"`
	NetAmount     float64      `json:"net_amount"`
	Method        PayoutMethod `json:"method"`
	GatewayRef    string       `json:"gateway_ref"`
	ReleasedAt    time.Time    `json:"released_at"`
	EarlyReleased bool         `json:"early_released"`
}
