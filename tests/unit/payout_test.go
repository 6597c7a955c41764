package unit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pgil256/juntas-seguras-sub008/internal/application"
	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
	"github.com/pgil256/juntas-seguras-sub008/internal/ports"
)

// flakyPayouts simulates a store outage on payout lookups.
type flakyPayouts struct {
	ports.PayoutRepository
	mu   sync.Mutex
	fail bool
}

func (p *flakyPayouts) setFail(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = fail
}

func (p *flakyPayouts) GetByRound(ctx context.Context, roundID string) (domain.Payout, error) {
	p.mu.Lock()
	failing := p.fail
	p.mu.Unlock()
	if failing {
		return domain.Payout{}, errors.New("payout store unavailable")
	}
	return p.PayoutRepository.GetByRound(ctx, roundID)
}

func TestTriggerPayoutRequiresOperator(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	pool := f.activePool(t, testMembers(3), 50)

	_, err := f.svc.TriggerScheduledPayout(context.Background(), memberActor("m-1", ""), pool.PoolID)
	if err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden for member trigger, got %v", err)
	}
}

func TestTriggerPayoutNotReadyIsAnAnswerNotAnError(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	pool := f.activePool(t, testMembers(4), 50)
	f.contribute(t, pool.PoolID, "m-1", 50)

	result, err := f.svc.TriggerScheduledPayout(context.Background(), operatorActor(""), pool.PoolID)
	if err != nil {
		t.Fatalf("trigger on incomplete round: %v", err)
	}
	if result.Decision != application.DecisionNotReady {
		t.Fatalf("expected not_ready, got %s", result.Decision)
	}
	if len(result.Missing) != 3 {
		t.Fatalf("expected 3 missing contributors, got %v", result.Missing)
	}
	if len(f.gateway.Payouts()) != 0 {
		t.Fatal("not_ready must not move money")
	}
}

func TestConcurrentTriggersReleaseOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	ctx := context.Background()
	pool := f.activePool(t, testMembers(3), 50)
	for i := 1; i <= 3; i++ {
		f.contribute(t, pool.PoolID, fmt.Sprintf("m-%d", i), 50)
	}

	const callers = 8
	var wg sync.WaitGroup
	released := make(chan application.PayoutResult, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.svc.TriggerScheduledPayout(ctx, operatorActor(""), pool.PoolID)
			if err != nil {
				return
			}
			released <- result
		}()
	}
	wg.Wait()
	close(released)

	fresh := 0
	for result := range released {
		if result.Decision == application.DecisionReadyToRelease {
			fresh++
		}
	}
	if fresh != 1 {
		t.Fatalf("exactly one caller may perform the release, got %d", fresh)
	}
	if got := len(f.gateway.Payouts()); got != 1 {
		t.Fatalf("expected one gateway payout under contention, got %d", got)
	}
}

func TestPlatformFeeComesOutOfRelease(t *testing.T) {
	t.Parallel()

	f := newFixture(0.025)
	ctx := context.Background()
	pool := f.activePool(t, testMembers(4), 50)
	for i := 1; i <= 4; i++ {
		f.contribute(t, pool.PoolID, fmt.Sprintf("m-%d", i), 50)
	}

	result, err := f.svc.TriggerScheduledPayout(ctx, operatorActor(""), pool.PoolID)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if result.Payout.GrossAmount != 200 {
		t.Fatalf("gross should stay contribution x members, got %v", result.Payout.GrossAmount)
	}
	if result.Payout.PlatformFee != 5 {
		t.Fatalf("2.5%% of 200 should be 5, got %v", result.Payout.PlatformFee)
	}
	if result.Payout.NetAmount != 195 {
		t.Fatalf("net should be gross minus fee, got %v", result.Payout.NetAmount)
	}
	payouts := f.gateway.Payouts()
	if len(payouts) != 1 || payouts[0].Amount != 195 {
		t.Fatalf("gateway should deliver the net amount, got %+v", payouts)
	}
}

func TestPayoutDeliveryFailureRequiresReconciliation(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	ctx := context.Background()
	pool := f.activePool(t, testMembers(2), 30)
	f.contribute(t, pool.PoolID, "m-1", 30)
	f.contribute(t, pool.PoolID, "m-2", 30)

	f.gateway.FailPayout = true
	_, err := f.svc.TriggerScheduledPayout(ctx, operatorActor(""), pool.PoolID)
	if !errors.Is(err, domain.ErrPayoutDeliveryFailed) {
		t.Fatalf("expected ErrPayoutDeliveryFailed, got %v", err)
	}

	roundID := mustCurrentRoundID(t, f, pool.PoolID)
	holds, err := f.repos.Holds.ListByRound(ctx, roundID)
	if err != nil {
		t.Fatalf("list holds: %v", err)
	}
	for _, hold := range holds {
		if hold.Status != domain.HoldStatusReleasePending {
			t.Fatalf("holds must stay release_pending after a failed delivery, got %s", hold.Status)
		}
	}

	// Even with the gateway healthy again, the unknown-state holds block a
	// blind retry until reconciled.
	f.gateway.FailPayout = false
	_, err = f.svc.TriggerScheduledPayout(ctx, operatorActor(""), pool.PoolID)
	if !errors.Is(err, domain.ErrRequiresReconciliation) {
		t.Fatalf("expected ErrRequiresReconciliation, got %v", err)
	}
	if len(f.gateway.Payouts()) != 0 {
		t.Fatal("no payout may be delivered while holds are unreconciled")
	}
}

func TestTriggerPayoutBlockedWithoutRecipientMethod(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	ctx := context.Background()
	members := testMembers(3)
	members[0].PayoutMethod = domain.PayoutMethod{}
	pool := f.activePool(t, members, 50)
	for i := 1; i <= 3; i++ {
		f.contribute(t, pool.PoolID, fmt.Sprintf("m-%d", i), 50)
	}

	_, err := f.svc.TriggerScheduledPayout(ctx, operatorActor(""), pool.PoolID)
	if err != domain.ErrNoPayoutMethodConfigured {
		t.Fatalf("expected ErrNoPayoutMethodConfigured, got %v", err)
	}
	if len(f.gateway.Payouts()) != 0 {
		t.Fatal("no payout may happen without a configured method")
	}
}

func TestTransientPayoutLookupErrorDoesNotHaltRound(t *testing.T) {
	t.Parallel()

	flaky := &flakyPayouts{}
	f := newFixtureWith(0, func(deps *application.Dependencies) {
		flaky.PayoutRepository = deps.Payouts
		deps.Payouts = flaky
	})
	ctx := context.Background()
	pool := f.activePool(t, testMembers(2), 30)
	// Run the pool to completion so the current round stays settled.
	for round := 1; round <= 2; round++ {
		for i := 1; i <= 2; i++ {
			memberID := fmt.Sprintf("m-%d", i)
			_, err := f.svc.RecordContribution(ctx,
				memberActor(memberID, fmt.Sprintf("fl:%s:%d:%s", pool.PoolID, round, memberID)),
				application.RecordContributionInput{PoolID: pool.PoolID, MemberID: memberID, Amount: 30},
			)
			if err != nil {
				t.Fatalf("round %d contribution %s: %v", round, memberID, err)
			}
		}
		if _, err := f.svc.TriggerScheduledPayout(ctx, operatorActor(""), pool.PoolID); err != nil {
			t.Fatalf("round %d trigger: %v", round, err)
		}
	}

	roundID := mustCurrentRoundID(t, f, pool.PoolID)
	flaky.setFail(true)
	_, err := f.svc.TriggerScheduledPayout(ctx, operatorActor(""), pool.PoolID)
	if err == nil {
		t.Fatal("expected the store error to surface")
	}
	if errors.Is(err, domain.ErrRoundHalted) {
		t.Fatal("a transient lookup failure must not halt the round")
	}
	round, err := f.repos.Rounds.GetByID(ctx, roundID)
	if err != nil {
		t.Fatalf("load round: %v", err)
	}
	if round.Status != domain.RoundStatusReleased {
		t.Fatalf("round should stay released, got %s", round.Status)
	}

	flaky.setFail(false)
	result, err := f.svc.TriggerScheduledPayout(ctx, operatorActor(""), pool.PoolID)
	if err != nil {
		t.Fatalf("replay after recovery: %v", err)
	}
	if result.Decision != application.DecisionAlreadyProcessed {
		t.Fatalf("expected already_processed after recovery, got %s", result.Decision)
	}
}

func TestProcessedRoundWithoutPayoutRecordHaltsRound(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	ctx := context.Background()

	now := time.Now().UTC()
	pool := domain.Pool{
		PoolID:             uuid.NewString(),
		Name:               "corrupted",
		Members:            testMembers(2),
		ContributionAmount: 40,
		Frequency:          domain.FrequencyWeekly,
		CurrentRound:       1,
		TotalRounds:        2,
		Status:             domain.PoolStatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := f.repos.Pools.Create(ctx, pool); err != nil {
		t.Fatalf("seed pool: %v", err)
	}
	round := domain.Round{
		RoundID:            uuid.NewString(),
		PoolID:             pool.PoolID,
		Number:             1,
		RecipientMemberID:  "m-1",
		ScheduledPayoutAt:  now.AddDate(0, 0, 7),
		Status:             domain.RoundStatusReady,
		PayoutProcessed:    true,
		PayoutAmountCached: 80,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := f.repos.Rounds.Create(ctx, round); err != nil {
		t.Fatalf("seed round: %v", err)
	}

	_, err := f.svc.TriggerScheduledPayout(ctx, operatorActor(""), pool.PoolID)
	if !errors.Is(err, domain.ErrRoundHalted) {
		t.Fatalf("expected ErrRoundHalted for a processed round with no payout record, got %v", err)
	}
	got, err := f.repos.Rounds.GetByID(ctx, round.RoundID)
	if err != nil {
		t.Fatalf("load round: %v", err)
	}
	if got.Status != domain.RoundStatusHalted {
		t.Fatalf("round should be halted, got %s", got.Status)
	}
}

func TestSweepDueRoundsFiresMaturedRounds(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	ctx := context.Background()

	// A pool whose round 1 matured yesterday, seeded directly at the
	// repository layer.
	members := testMembers(2)
	now := time.Now().UTC()
	pool := domain.Pool{
		PoolID:             uuid.NewString(),
		Name:               "matured",
		Members:            members,
		ContributionAmount: 40,
		Frequency:          domain.FrequencyWeekly,
		CurrentRound:       1,
		TotalRounds:        2,
		Status:             domain.PoolStatusActive,
		CreatedAt:          now.AddDate(0, 0, -8),
		UpdatedAt:          now.AddDate(0, 0, -8),
	}
	if err := f.repos.Pools.Create(ctx, pool); err != nil {
		t.Fatalf("seed pool: %v", err)
	}
	round := domain.Round{
		RoundID:            uuid.NewString(),
		PoolID:             pool.PoolID,
		Number:             1,
		RecipientMemberID:  "m-1",
		ScheduledPayoutAt:  now.AddDate(0, 0, -1),
		Status:             domain.RoundStatusCollecting,
		PayoutAmountCached: 80,
		CreatedAt:          now.AddDate(0, 0, -8),
		UpdatedAt:          now.AddDate(0, 0, -8),
	}
	if err := f.repos.Rounds.Create(ctx, round); err != nil {
		t.Fatalf("seed round: %v", err)
	}
	f.contribute(t, pool.PoolID, "m-1", 40)
	f.contribute(t, pool.PoolID, "m-2", 40)

	fired, err := f.svc.SweepDueRounds(ctx, 10)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if fired != 1 {
		t.Fatalf("expected 1 fired round, got %d", fired)
	}
	if len(f.gateway.Payouts()) != 1 {
		t.Fatalf("expected one payout from sweep, got %d", len(f.gateway.Payouts()))
	}

	// A second sweep finds nothing: the matured round is processed and the
	// next one is a week out.
	fired, err = f.svc.SweepDueRounds(ctx, 10)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if fired != 0 {
		t.Fatalf("second sweep should fire nothing, got %d", fired)
	}
}

func TestSweepSkipsIncompleteRounds(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	ctx := context.Background()

	now := time.Now().UTC()
	pool := domain.Pool{
		PoolID:             uuid.NewString(),
		Name:               "short",
		Members:            testMembers(2),
		ContributionAmount: 40,
		Frequency:          domain.FrequencyWeekly,
		CurrentRound:       1,
		TotalRounds:        2,
		Status:             domain.PoolStatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := f.repos.Pools.Create(ctx, pool); err != nil {
		t.Fatalf("seed pool: %v", err)
	}
	round := domain.Round{
		RoundID:            uuid.NewString(),
		PoolID:             pool.PoolID,
		Number:             1,
		RecipientMemberID:  "m-1",
		ScheduledPayoutAt:  now.AddDate(0, 0, -1),
		Status:             domain.RoundStatusCollecting,
		PayoutAmountCached: 80,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := f.repos.Rounds.Create(ctx, round); err != nil {
		t.Fatalf("seed round: %v", err)
	}
	f.contribute(t, pool.PoolID, "m-1", 40)

	fired, err := f.svc.SweepDueRounds(ctx, 10)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if fired != 0 {
		t.Fatalf("incomplete round must not fire, got %d", fired)
	}
	if len(f.gateway.Payouts()) != 0 {
		t.Fatal("no payout may happen for an incomplete round")
	}
}
