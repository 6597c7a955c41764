package unit

import (
	"context"
	"fmt"
	"testing"

	eventadapter "github.com/pgil256/juntas-seguras-sub008/internal/adapters/events"
	"github.com/pgil256/juntas-seguras-sub008/internal/adapters/gateway"
	"github.com/pgil256/juntas-seguras-sub008/internal/adapters/memory"
	"github.com/pgil256/juntas-seguras-sub008/internal/adapters/security"
	"github.com/pgil256/juntas-seguras-sub008/internal/application"
	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
)

const approvalCode = "123456"

type fixture struct {
	svc     *application.Service
	repos   *memory.Repositories
	gateway *gateway.Sandbox
	sink    *eventadapter.MemorySink
	domain  *eventadapter.MemoryDomainPublisher
}

func newFixture(feeRate float64) *fixture {
	return newFixtureWith(feeRate, nil)
}

// newFixtureWith lets a test swap individual dependencies, e.g. a gateway
// wrapper or a misbehaving repository.
func newFixtureWith(feeRate float64, mutate func(*application.Dependencies)) *fixture {
	repos := memory.NewRepositories()
	gw := gateway.NewSandbox()
	sink := eventadapter.NewMemorySink()
	domainPub := eventadapter.NewMemoryDomainPublisher()
	deps := application.Dependencies{
		Config: application.Config{
			PlatformFeeRate: feeRate,
		},
		Pools:         repos.Pools,
		Rounds:        repos.Rounds,
		Contributions: repos.Contributions,
		Holds:         repos.Holds,
		Payouts:       repos.Payouts,
		Ledger:        repos.Ledger,
		EarlyPayouts:  repos.EarlyPayouts,
		Idempotency:   repos.Idempotency,
		Outbox:        repos.Outbox,
		Gateway:       gw,
		Locks:         memory.NewRoundLocker(),
		Notifier:      sink,
		Approvals:     security.NewStaticVerifier(approvalCode),
		DomainEvents:  domainPub,
		Analytics:     eventadapter.NewMemoryAnalyticsPublisher(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	svc := application.NewService(deps)
	return &fixture{svc: svc, repos: repos, gateway: gw, sink: sink, domain: domainPub}
}

func testMember(n int) domain.Member {
	return domain.Member{
		MemberID:    fmt.Sprintf("m-%d", n),
		DisplayName: fmt.Sprintf("Member %d", n),
		Position:    n,
		PayoutMethod: domain.PayoutMethod{
			Type:   "bank",
			Handle: fmt.Sprintf("acct-%d", n),
		},
	}
}

func testMembers(count int) []domain.Member {
	out := make([]domain.Member, 0, count)
	for i := 1; i <= count; i++ {
		out = append(out, testMember(i))
	}
	return out
}

func operatorActor(idemKey string) application.Actor {
	return application.Actor{SubjectID: "op-1", Role: "operator", RequestID: "req-op", IdempotencyKey: idemKey}
}

func memberActor(memberID, idemKey string) application.Actor {
	return application.Actor{SubjectID: memberID, Role: "member", RequestID: "req-" + memberID, IdempotencyKey: idemKey}
}

func (f *fixture) activePool(t *testing.T, members []domain.Member, amount float64) domain.Pool {
	t.Helper()
	ctx := context.Background()
	pool, err := f.svc.CreatePool(ctx, operatorActor(""), application.CreatePoolInput{
		Name:               "cundina",
		ContributionAmount: amount,
		Frequency:          domain.FrequencyWeekly,
		Members:            members,
	})
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	pool, err = f.svc.ActivatePool(ctx, operatorActor(""), pool.PoolID)
	if err != nil {
		t.Fatalf("activate pool: %v", err)
	}
	return pool
}

func (f *fixture) contribute(t *testing.T, poolID, memberID string, amount float64) application.ContributionOutput {
	t.Helper()
	out, err := f.svc.RecordContribution(context.Background(),
		memberActor(memberID, "contrib:"+poolID+":"+memberID),
		application.RecordContributionInput{PoolID: poolID, MemberID: memberID, Amount: amount},
	)
	if err != nil {
		t.Fatalf("contribute %s: %v", memberID, err)
	}
	return out
}

func TestCreatePoolRejectsBadRosters(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	ctx := context.Background()
	cases := []struct {
		name  string
		input application.CreatePoolInput
	}{
		{"one member", application.CreatePoolInput{Name: "p", ContributionAmount: 50, Frequency: domain.FrequencyWeekly, Members: testMembers(1)}},
		{"zero amount", application.CreatePoolInput{Name: "p", ContributionAmount: 0, Frequency: domain.FrequencyWeekly, Members: testMembers(3)}},
		{"bad frequency", application.CreatePoolInput{Name: "p", ContributionAmount: 50, Frequency: "daily", Members: testMembers(3)}},
		{"duplicate position", application.CreatePoolInput{Name: "p", ContributionAmount: 50, Frequency: domain.FrequencyWeekly, Members: []domain.Member{
			{MemberID: "a", Position: 1}, {MemberID: "b", Position: 1},
		}}},
		{"position gap", application.CreatePoolInput{Name: "p", ContributionAmount: 50, Frequency: domain.FrequencyWeekly, Members: []domain.Member{
			{MemberID: "a", Position: 1}, {MemberID: "b", Position: 3},
		}}},
	}
	for _, tc := range cases {
		if _, err := f.svc.CreatePool(ctx, operatorActor(""), tc.input); err != domain.ErrInvalidConfiguration {
			t.Fatalf("%s: expected ErrInvalidConfiguration, got %v", tc.name, err)
		}
	}
}

func TestActivatePoolMaterializesFirstRound(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	pool := f.activePool(t, testMembers(4), 50)

	if pool.Status != domain.PoolStatusActive || pool.CurrentRound != 1 {
		t.Fatalf("expected active pool on round 1, got %s round %d", pool.Status, pool.CurrentRound)
	}
	status, err := f.svc.GetRoundStatus(context.Background(), operatorActor(""), pool.PoolID)
	if err != nil {
		t.Fatalf("round status: %v", err)
	}
	if status.Round.Number != 1 || status.Round.Status != domain.RoundStatusCollecting {
		t.Fatalf("expected collecting round 1, got %d %s", status.Round.Number, status.Round.Status)
	}
	if status.Round.RecipientMemberID != "m-1" {
		t.Fatalf("round 1 recipient should be position 1, got %s", status.Round.RecipientMemberID)
	}
	if status.Round.PayoutAmountCached != 200 {
		t.Fatalf("payout amount should be contribution x members = 200, got %v", status.Round.PayoutAmountCached)
	}
	if len(status.MissingContributions) != 4 {
		t.Fatalf("expected all 4 members missing, got %v", status.MissingContributions)
	}
}

func TestFullRoundLifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	ctx := context.Background()
	pool := f.activePool(t, testMembers(4), 50)

	for i := 1; i <= 3; i++ {
		out := f.contribute(t, pool.PoolID, fmt.Sprintf("m-%d", i), 50)
		if out.AllReceived {
			t.Fatalf("all_received should be false after %d of 4", i)
		}
	}

	eligibility, err := f.svc.CheckEarlyPayoutEligibility(ctx, operatorActor(""), pool.PoolID)
	if err != nil {
		t.Fatalf("eligibility: %v", err)
	}
	if eligibility.Allowed {
		t.Fatal("eligibility should be blocked while a contribution is missing")
	}
	if len(eligibility.MissingContributions) != 1 || eligibility.MissingContributions[0] != "m-4" {
		t.Fatalf("expected m-4 missing, got %v", eligibility.MissingContributions)
	}

	// The recipient contributes too: payout is contribution x memberCount.
	out := f.contribute(t, pool.PoolID, "m-4", 50)
	if !out.AllReceived {
		t.Fatal("all_received should flip on the final contribution")
	}

	status, err := f.svc.GetRoundStatus(ctx, operatorActor(""), pool.PoolID)
	if err != nil {
		t.Fatalf("round status: %v", err)
	}
	if status.Round.Status != domain.RoundStatusReady {
		t.Fatalf("round should be ready once fully collected, got %s", status.Round.Status)
	}

	result, err := f.svc.TriggerScheduledPayout(ctx, operatorActor(""), pool.PoolID)
	if err != nil {
		t.Fatalf("trigger payout: %v", err)
	}
	if result.Decision != application.DecisionReadyToRelease || result.Payout == nil {
		t.Fatalf("expected release, got %s", result.Decision)
	}
	if result.Payout.GrossAmount != 200 || result.Payout.NetAmount != 200 {
		t.Fatalf("expected gross=net=200 with zero fee, got %v/%v", result.Payout.GrossAmount, result.Payout.NetAmount)
	}
	if result.Payout.RecipientID != "m-1" {
		t.Fatalf("round 1 payout should go to m-1, got %s", result.Payout.RecipientID)
	}
	if result.Pool.CurrentRound != 2 {
		t.Fatalf("pool should advance to round 2, got %d", result.Pool.CurrentRound)
	}
	if got := len(f.gateway.Payouts()); got != 1 {
		t.Fatalf("expected exactly one gateway payout, got %d", got)
	}
	if f.gateway.OutstandingHolds() != 0 {
		t.Fatalf("all holds should be settled, %d outstanding", f.gateway.OutstandingHolds())
	}

	next, err := f.svc.GetRoundStatus(ctx, operatorActor(""), pool.PoolID)
	if err != nil {
		t.Fatalf("next round status: %v", err)
	}
	if next.Round.Number != 2 || next.Round.RecipientMemberID != "m-2" {
		t.Fatalf("round 2 recipient should be m-2, got round %d -> %s", next.Round.Number, next.Round.RecipientMemberID)
	}
	if next.Round.Status != domain.RoundStatusCollecting {
		t.Fatalf("new round should be collecting, got %s", next.Round.Status)
	}
}

func TestTriggerPayoutReplayReturnsPriorResult(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	ctx := context.Background()
	pool := f.activePool(t, testMembers(3), 25)
	for i := 1; i <= 3; i++ {
		f.contribute(t, pool.PoolID, fmt.Sprintf("m-%d", i), 25)
	}

	first, err := f.svc.TriggerScheduledPayout(ctx, operatorActor(""), pool.PoolID)
	if err != nil {
		t.Fatalf("first trigger: %v", err)
	}

	// Replay against the released round, not the advanced current round.
	releasedRound, err := f.repos.Rounds.GetByID(ctx, first.Round.RoundID)
	if err != nil {
		t.Fatalf("reload round: %v", err)
	}
	if !releasedRound.PayoutProcessed {
		t.Fatal("payout_processed must be set after release")
	}

	record, err := f.repos.Payouts.GetByRound(ctx, releasedRound.RoundID)
	if err != nil {
		t.Fatalf("payout record: %v", err)
	}
	if record.PayoutID != first.Payout.PayoutID {
		t.Fatal("payout record should match the returned payout")
	}
	if got := len(f.gateway.Payouts()); got != 1 {
		t.Fatalf("expected one gateway payout after replayed trigger, got %d", got)
	}
}

func TestPoolCompletesAfterFinalRound(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	ctx := context.Background()
	pool := f.activePool(t, testMembers(2), 10)

	for round := 1; round <= 2; round++ {
		for i := 1; i <= 2; i++ {
			memberID := fmt.Sprintf("m-%d", i)
			_, err := f.svc.RecordContribution(ctx,
				memberActor(memberID, fmt.Sprintf("c:%s:%d:%s", pool.PoolID, round, memberID)),
				application.RecordContributionInput{PoolID: pool.PoolID, MemberID: memberID, Amount: 10},
			)
			if err != nil {
				t.Fatalf("round %d contribution %s: %v", round, memberID, err)
			}
		}
		result, err := f.svc.TriggerScheduledPayout(ctx, operatorActor(""), pool.PoolID)
		if err != nil {
			t.Fatalf("round %d trigger: %v", round, err)
		}
		if result.Payout == nil {
			t.Fatalf("round %d should release", round)
		}
	}

	final, err := f.svc.GetPool(ctx, operatorActor(""), pool.PoolID)
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	if final.Status != domain.PoolStatusCompleted {
		t.Fatalf("pool should complete after last round, got %s", final.Status)
	}
	payouts := f.gateway.Payouts()
	if len(payouts) != 2 {
		t.Fatalf("expected 2 payouts, got %d", len(payouts))
	}
	// Each member received exactly one payout across the pool's life.
	seen := map[string]bool{}
	for _, p := range payouts {
		seen[p.Method.Handle] = true
	}
	if !seen["acct-1"] || !seen["acct-2"] {
		t.Fatalf("each member should be paid once, got %v", seen)
	}

	// A trigger against the settled final round replays the prior result.
	replay, err := f.svc.TriggerScheduledPayout(ctx, operatorActor(""), pool.PoolID)
	if err != nil {
		t.Fatalf("replay trigger: %v", err)
	}
	if replay.Decision != application.DecisionAlreadyProcessed || replay.Payout == nil {
		t.Fatalf("expected already_processed replay, got %s", replay.Decision)
	}
	if len(f.gateway.Payouts()) != 2 {
		t.Fatal("replay must not move money again")
	}
}

func TestCancelCurrentRoundVoidsEscrow(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	ctx := context.Background()
	pool := f.activePool(t, testMembers(3), 20)
	f.contribute(t, pool.PoolID, "m-1", 20)
	f.contribute(t, pool.PoolID, "m-2", 20)

	round, err := f.svc.CancelCurrentRound(ctx, operatorActor(""), pool.PoolID, "dispute")
	if err != nil {
		t.Fatalf("cancel round: %v", err)
	}
	if round.Status != domain.RoundStatusCancelled {
		t.Fatalf("expected cancelled round, got %s", round.Status)
	}
	if f.gateway.OutstandingHolds() != 0 {
		t.Fatalf("cancel should void outstanding holds, %d left", f.gateway.OutstandingHolds())
	}
	paused, err := f.svc.GetPool(ctx, operatorActor(""), pool.PoolID)
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	if paused.Status != domain.PoolStatusPaused {
		t.Fatalf("pool should pause after cancellation, got %s", paused.Status)
	}

	if _, err := f.svc.CancelCurrentRound(ctx, memberActor("m-1", ""), pool.PoolID, "nope"); err != domain.ErrForbidden {
		t.Fatalf("member cancel should be forbidden, got %v", err)
	}
}

func TestPoolBalanceTracksLedger(t *testing.T) {
	t.Parallel()

	f := newFixture(0.05)
	ctx := context.Background()
	pool := f.activePool(t, testMembers(2), 100)
	f.contribute(t, pool.PoolID, "m-1", 100)

	balance, err := f.svc.PoolBalance(ctx, operatorActor(""), pool.PoolID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.HeldBalance != 100 {
		t.Fatalf("one authorized hold should show held=100, got %v", balance.HeldBalance)
	}

	f.contribute(t, pool.PoolID, "m-2", 100)
	if _, err := f.svc.TriggerScheduledPayout(ctx, operatorActor(""), pool.PoolID); err != nil {
		t.Fatalf("trigger: %v", err)
	}

	balance, err = f.svc.PoolBalance(ctx, operatorActor(""), pool.PoolID)
	if err != nil {
		t.Fatalf("balance after release: %v", err)
	}
	if balance.HeldBalance != 0 {
		t.Fatalf("held balance should drain to zero, got %v", balance.HeldBalance)
	}
	if balance.CapturedTotal != 200 {
		t.Fatalf("captured total should be 200, got %v", balance.CapturedTotal)
	}
	if balance.FeeTotal != 10 {
		t.Fatalf("fee total should be 10 at 5%% of 200, got %v", balance.FeeTotal)
	}
	if balance.ReleasedTotal != 190 {
		t.Fatalf("released total should be net 190, got %v", balance.ReleasedTotal)
	}
}
