package domain

import "errors"

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("conflict")
	ErrIdempotencyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict = errors.New("idempotency conflict")

	ErrInvalidConfiguration = errors.New("invalid pool configuration")
	ErrPoolNotActive        = errors.New("pool is not active")
	ErrRoundClosed          = errors.New("round is closed")
	ErrRoundHalted          = errors.New("round halted pending operator intervention")

	ErrDuplicateContribution = errors.New("member already contributed this round")
	ErrAmountMismatch        = errors.New("contribution amount does not match pool amount")

	ErrGatewayAuthorizationFailed = errors.New("gateway declined authorization")
	ErrHoldNotFound               = errors.New("escrow hold not found")
	ErrHoldExpired                = errors.New("escrow hold expired")
	ErrHoldNotCapturable          = errors.New("escrow hold is not capturable")
	ErrNoPayoutMethodConfigured   = errors.New("recipient has no payout method configured")
	ErrPayoutDeliveryFailed       = errors.New("payout delivery failed")
	ErrRequiresReconciliation     = errors.New("requires manual reconciliation")

	ErrLockUnavailable = errors.New("round lock unavailable")
)
