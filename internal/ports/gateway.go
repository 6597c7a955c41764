package ports

import (
	"context"

	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
)

// PaymentGateway is the abstract money-movement collaborator. The engine is
// agnostic to whether holds are card authorizations, bank transfers, or P2P
// handles; only these four operations are required.
type PaymentGateway interface {
	Authorize(ctx context.Context, payerRef string, amount float64) (holdRef string, err error)
	Capture(ctx context.Context, holdRef string) (captureRef string, err error)
	Void(ctx context.Context, holdRef string) error
	Payout(ctx context.Context, method domain.PayoutMethod, amount float64) (payoutRef string, err error)
}
