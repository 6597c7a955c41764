package postgres

import "time"

type poolModel struct {
	PoolID             string    `gorm:"column:pool_id;type:uuid;primaryKey"`
	Name               string    `gorm:"column:name"`
	ContributionAmount float64   `gorm:"column:contribution_amount"`
	Frequency          string    `gorm:"column:frequency"`
	CurrentRound       int       `gorm:"column:current_round"`
	TotalRounds        int       `gorm:"column:total_rounds"`
	Status             string    `gorm:"column:status"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (poolModel) TableName() string { return "pools" }

type poolMemberModel struct {
	PoolID           string `gorm:"column:pool_id;type:uuid;primaryKey"`
	MemberID         string `gorm:"column:member_id;type:uuid;primaryKey"`
	DisplayName      string `gorm:"column:display_name"`
	Contact          string `gorm:"column:contact"`
	Position         int    `gorm:"column:position"`
	PayoutMethodType string `gorm:"column:payout_method_type"`
	PayoutHandle     string `gorm:"column:payout_handle"`
}

func (poolMemberModel) TableName() string { return "pool_members" }

type roundModel struct {
	RoundID            string    `gorm:"column:round_id;type:uuid;primaryKey"`
	PoolID             string    `gorm:"column:pool_id;type:uuid"`
	Number             int       `gorm:"column:number"`
	RecipientMemberID  string    `gorm:"column:recipient_member_id;type:uuid"`
	ScheduledPayoutAt  time.Time `gorm:"column:scheduled_payout_at"`
	Status             string    `gorm:"column:status"`
	PayoutProcessed    bool      `gorm:"column:payout_processed"`
	PayoutAmountCached float64   `gorm:"column:payout_amount_cached"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (roundModel) TableName() string { return "rounds" }

type contributionModel struct {
	ContributionID string     `gorm:"column:contribution_id;type:uuid;primaryKey"`
	RoundID        string     `gorm:"column:round_id;type:uuid"`
	PoolID         string     `gorm:"column:pool_id;type:uuid"`
	MemberID       string     `gorm:"column:member_id;type:uuid"`
	Amount         float64    `gorm:"column:amount"`
	EscrowID       string     `gorm:"column:escrow_id"`
	Voided         bool       `gorm:"column:voided"`
	RecordedAt     time.Time  `gorm:"column:recorded_at"`
	VoidedAt       *time.Time `gorm:"column:voided_at"`
}

func (contributionModel) TableName() string { return "contributions" }

type escrowHoldModel struct {
	HoldID          string     `gorm:"column:hold_id;type:uuid;primaryKey"`
	ContributionID  string     `gorm:"column:contribution_id;type:uuid"`
	PoolID          string     `gorm:"column:pool_id;type:uuid"`
	RoundID         string     `gorm:"column:round_id;type:uuid"`
	MemberID        string     `gorm:"column:member_id;type:uuid"`
	Amount          float64    `gorm:"column:amount"`
	Status          string     `gorm:"column:status"`
	GatewayHoldRef  string     `gorm:"column:gateway_hold_ref"`
	GatewayCapRef   string     `gorm:"column:gateway_cap_ref"`
	HoldCreatedAt   time.Time  `gorm:"column:hold_created_at"`
	ReleaseDeadline time.Time  `gorm:"column:release_deadline"`
	ReleasedAt      *time.Time `gorm:"column:released_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (escrowHoldModel) TableName() string { return "escrow_holds" }

type payoutModel struct {
	PayoutID      string    `gorm:"column:payout_id;type:uuid;primaryKey"`
	PoolID        string    `gorm:"column:pool_id;type:uuid"`
	RoundID       string    `gorm:"column:round_id;type:uuid"`
	RecipientID   string    `gorm:"column:recipient_id;type:uuid"`
	GrossAmount   float64   `gorm:"column:gross_amount"`
	PlatformFee   float64   `gorm:"column:platform_fee"`
	NetAmount     float64   `gorm:"column:net_amount"`
	MethodType    string    `gorm:"column:method_type"`
	MethodHandle  string    `gorm:"column:method_handle"`
	GatewayRef    string    `gorm:"column:gateway_ref"`
	EarlyReleased bool      `gorm:"column:early_released"`
	ReleasedAt    time.Time `gorm:"column:released_at"`
}

func (payoutModel) TableName() string { return "payouts" }

type ledgerEntryModel struct {
	EntryID    string    `gorm:"column:entry_id;type:uuid;primaryKey"`
	PoolID     string    `gorm:"column:pool_id;type:uuid"`
	RoundID    string    `gorm:"column:round_id;type:uuid"`
	MemberID   string    `gorm:"column:member_id"`
	EntryType  string    `gorm:"column:entry_type"`
	Amount     float64   `gorm:"column:amount"`
	OccurredAt time.Time `gorm:"column:occurred_at"`
}

func (ledgerEntryModel) TableName() string { return "ledger_entries" }

type earlyPayoutModel struct {
	RequestID   string     `gorm:"column:request_id;type:uuid;primaryKey"`
	PoolID      string     `gorm:"column:pool_id;type:uuid"`
	RoundID     string     `gorm:"column:round_id;type:uuid"`
	RequestedBy string     `gorm:"column:requested_by"`
	Reason      string     `gorm:"column:reason"`
	Outcome     string     `gorm:"column:outcome"`
	DenyReason  string     `gorm:"column:deny_reason"`
	RequestedAt time.Time  `gorm:"column:requested_at"`
	ResolvedAt  *time.Time `gorm:"column:resolved_at"`
}

func (earlyPayoutModel) TableName() string { return "early_payout_requests" }

type idempotencyModel struct {
	IdemKey      string    `gorm:"column:idem_key;primaryKey"`
	RequestHash  string    `gorm:"column:request_hash"`
	ResponseCode int       `gorm:"column:response_code"`
	ResponseBody []byte    `gorm:"column:response_body"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	ExpiresAt    time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string { return "idempotency_keys" }

type outboxModel struct {
	RecordID   string     `gorm:"column:record_id;type:uuid;primaryKey"`
	EventClass string     `gorm:"column:event_class"`
	Envelope   string     `gorm:"column:envelope;type:jsonb"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	SentAt     *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string { return "outbox_events" }
