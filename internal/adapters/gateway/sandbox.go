// Package gateway hosts payment gateway implementations. The engine only
// sees the abstract authorize/capture/void/payout port; rendering a hold as
// a card authorization, bank transfer, or P2P deep link happens outside it.
package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
)

// Sandbox is an in-process gateway for tests and local development. It
// tracks refs so capture/void/payout validate against real prior calls, and
// exposes failure switches for exercising error paths.
type Sandbox struct {
	mu       sync.Mutex
	holds    map[string]float64
	captured map[string]float64
	payouts  []SandboxPayout

	FailAuthorize int // decline the next N authorize calls
	FailCapture   bool
	FailPayout    bool
}

type SandboxPayout struct {
	Method domain.PayoutMethod
	Amount float64
	Ref    string
}

func NewSandbox() *Sandbox {
	return &Sandbox{
		holds:    map[string]float64{},
		captured: map[string]float64{},
	}
}

func (g *Sandbox) Authorize(_ context.Context, payerRef string, amount float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailAuthorize > 0 {
		g.FailAuthorize--
		return "", fmt.Errorf("sandbox decline for %s", payerRef)
	}
	ref := "auth_" + uuid.NewString()
	g.holds[ref] = amount
	return ref, nil
}

func (g *Sandbox) Capture(_ context.Context, holdRef string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailCapture {
		return "", fmt.Errorf("sandbox capture failure for %s", holdRef)
	}
	amount, ok := g.holds[holdRef]
	if !ok {
		return "", fmt.Errorf("unknown hold ref %s", holdRef)
	}
	delete(g.holds, holdRef)
	ref := "cap_" + uuid.NewString()
	g.captured[ref] = amount
	return ref, nil
}

func (g *Sandbox) Void(_ context.Context, holdRef string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.holds[holdRef]; !ok {
		return fmt.Errorf("unknown hold ref %s", holdRef)
	}
	delete(g.holds, holdRef)
	return nil
}

func (g *Sandbox) Payout(_ context.Context, method domain.PayoutMethod, amount float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailPayout {
		return "", fmt.Errorf("sandbox payout failure")
	}
	ref := "po_" + uuid.NewString()
	g.payouts = append(g.payouts, SandboxPayout{Method: method, Amount: amount, Ref: ref})
	return ref, nil
}

// Payouts returns a copy of delivered payouts, oldest first.
func (g *Sandbox) Payouts() []SandboxPayout {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]SandboxPayout, len(g.payouts))
	copy(out, g.payouts)
	return out
}

// OutstandingHolds reports authorize refs not yet captured or voided.
func (g *Sandbox) OutstandingHolds() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.holds)
}
