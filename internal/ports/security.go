package ports

import "context"

// ApprovalVerifier validates the operator approval code presented with an
// early-payout request. Implementations are selected by environment at
// bootstrap so business logic carries no environment-sensitive branches.
type ApprovalVerifier interface {
	Verify(ctx context.Context, code string) error
}
