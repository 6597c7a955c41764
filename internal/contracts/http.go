package contracts

type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type MemberInput struct {
	MemberID     string `json:"member_id"`
	DisplayName  string `json:"display_name"`
	Contact      string `json:"contact"`
	Position     int    `json:"position"`
	PayoutType   string `json:"payout_type,omitempty"`
	PayoutHandle string `json:"payout_handle,omitempty"`
}

type CreatePoolRequest struct {
	Name               string        `json:"name"`
	ContributionAmount float64       `json:"contribution_amount"`
	Frequency          string        `json:"frequency"`
	Members            []MemberInput `json:"members"`
}

type RecordContributionRequest struct {
	PoolID   string  `json:"pool_id"`
	MemberID string  `json:"member_id"`
	Amount   float64 `json:"amount"`
	// Direct payments (cash handed over outside the platform) skip escrow.
	Direct bool `json:"direct,omitempty"`
}

type ContributionResponse struct {
	ContributionID string  `json:"contribution_id"`
	RoundID        string  `json:"round_id"`
	MemberID       string  `json:"member_id"`
	Amount         float64 `json:"amount"`
	EscrowID       string  `json:"escrow_id,omitempty"`
	EscrowStatus   string  `json:"escrow_status,omitempty"`
	AllReceived    bool    `json:"all_received"`
}

type RoundStatusResponse struct {
	PoolID               string   `json:"pool_id"`
	RoundID              string   `json:"round_id"`
	RoundNumber          int      `json:"round_number"`
	Status               string   `json:"status"`
	RecipientID          string   `json:"recipient_id"`
	ScheduledPayoutAt    string   `json:"scheduled_payout_at"`
	PayoutAmount         float64  `json:"payout_amount"`
	PayoutProcessed      bool     `json:"payout_processed"`
	ContributionsIn      int      `json:"contributions_in"`
	MissingContributions []string `json:"missing_contributions"`
}

type EarlyPayoutEligibilityResponse struct {
	Allowed               bool     `json:"allowed"`
	Reason                string   `json:"reason"`
	MissingContributions  []string `json:"missing_contributions"`
	RecipientConnectState string   `json:"recipient_connect_status"`
}

type InitiateEarlyPayoutRequest struct {
	PoolID       string `json:"pool_id"`
	Reason       string `json:"reason"`
	ApprovalCode string `json:"approval_code"`
}

type TriggerPayoutRequest struct {
	PoolID string `json:"pool_id"`
}

type PayoutResponse struct {
	PayoutID    string  `json:"payout_id"`
	PoolID      string  `json:"pool_id"`
	RoundID     string  `json:"round_id"`
	RecipientID string  `json:"recipient_id"`
	GrossAmount float64 `json:"gross_amount"`
	PlatformFee float64 `json:"platform_fee"`
	NetAmount   float64 `json:"net_amount"`
	Early       bool    `json:"early"`
	ReleasedAt  string  `json:"released_at"`
	NextRound   int     `json:"next_round,omitempty"`
	PoolStatus  string  `json:"pool_status"`
}

type BalanceResponse struct {
	PoolID        string  `json:"pool_id"`
	HeldBalance   float64 `json:"held_balance"`
	CapturedTotal float64 `json:"captured_total"`
	ReleasedTotal float64 `json:"released_total"`
	FeeTotal      float64 `json:"fee_total"`
}
