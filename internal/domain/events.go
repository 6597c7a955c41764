package domain

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
)

const (
	EventContributionReceived = "pool.contribution_received"
	EventRoundReady           = "pool.round_ready"
	EventPayoutReleased       = "pool.payout_released"
	EventPayoutReconciliation = "pool.payout_requires_reconciliation"
	EventEarlyPayoutApproved  = "pool.early_payout_approved"
	EventEarlyPayoutDenied    = "pool.early_payout_denied"
	EventPoolCompleted        = "pool.completed"
	EventEscrowHoldVoided     = "pool.escrow_hold_voided"
	EventEscrowHoldExpired    = "pool.escrow_hold_expired"
)

func IsCanonicalEmittedEvent(eventType string) bool {
	switch eventType {
	case EventContributionReceived, EventRoundReady, EventPayoutReleased,
		EventPayoutReconciliation, EventEarlyPayoutApproved, EventEarlyPayoutDenied,
		EventPoolCompleted, EventEscrowHoldVoided, EventEscrowHoldExpired:
		return true
	default:
		return false
	}
}

func CanonicalEventClass(eventType string) string {
	switch eventType {
	case EventPayoutReleased, EventPayoutReconciliation, EventPoolCompleted,
		EventEarlyPayoutApproved, EventEarlyPayoutDenied:
		return CanonicalEventClassDomain
	case EventContributionReceived, EventRoundReady, EventEscrowHoldVoided, EventEscrowHoldExpired:
		return CanonicalEventClassAnalyticsOnly
	default:
		return ""
	}
}

func CanonicalPartitionKeyPath(eventType string) string {
	if IsCanonicalEmittedEvent(eventType) {
		return "data.pool_id"
	}
	return ""
}
