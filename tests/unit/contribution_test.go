package unit

import (
	"context"
	"errors"
	"testing"

	"github.com/pgil256/juntas-seguras-sub008/internal/application"
	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
)

func TestRecordContributionRequiresIdempotencyKey(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	pool := f.activePool(t, testMembers(3), 50)

	_, err := f.svc.RecordContribution(context.Background(),
		application.Actor{SubjectID: "m-1", Role: "member"},
		application.RecordContributionInput{PoolID: pool.PoolID, MemberID: "m-1", Amount: 50},
	)
	if err != domain.ErrIdempotencyRequired {
		t.Fatalf("expected ErrIdempotencyRequired, got %v", err)
	}
}

func TestRecordContributionIdempotentReplay(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	ctx := context.Background()
	pool := f.activePool(t, testMembers(3), 50)

	actor := memberActor("m-1", "contrib-key-1")
	input := application.RecordContributionInput{PoolID: pool.PoolID, MemberID: "m-1", Amount: 50}

	first, err := f.svc.RecordContribution(ctx, actor, input)
	if err != nil {
		t.Fatalf("first contribution: %v", err)
	}
	second, err := f.svc.RecordContribution(ctx, actor, input)
	if err != nil {
		t.Fatalf("replayed contribution: %v", err)
	}
	if first.Contribution.ContributionID != second.Contribution.ContributionID {
		t.Fatal("replay with the same key must return the original contribution")
	}
	if f.gateway.OutstandingHolds() != 1 {
		t.Fatalf("replay must not authorize a second hold, got %d", f.gateway.OutstandingHolds())
	}

	// Same key, different payload is a conflict, not a replay.
	altered := input
	altered.MemberID = "m-2"
	if _, err := f.svc.RecordContribution(ctx, actor, altered); err != domain.ErrIdempotencyConflict {
		t.Fatalf("expected ErrIdempotencyConflict, got %v", err)
	}
}

func TestRecordContributionRejectsDuplicateMember(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	ctx := context.Background()
	pool := f.activePool(t, testMembers(3), 50)
	f.contribute(t, pool.PoolID, "m-1", 50)

	_, err := f.svc.RecordContribution(ctx,
		memberActor("m-1", "another-key"),
		application.RecordContributionInput{PoolID: pool.PoolID, MemberID: "m-1", Amount: 50},
	)
	if err != domain.ErrDuplicateContribution {
		t.Fatalf("expected ErrDuplicateContribution, got %v", err)
	}
}

func TestRecordContributionRejectsWrongAmount(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	pool := f.activePool(t, testMembers(3), 50)

	_, err := f.svc.RecordContribution(context.Background(),
		memberActor("m-1", "wrong-amount"),
		application.RecordContributionInput{PoolID: pool.PoolID, MemberID: "m-1", Amount: 49.99},
	)
	if err != domain.ErrAmountMismatch {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}
}

func TestRecordContributionRejectsUnknownMember(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	pool := f.activePool(t, testMembers(3), 50)

	_, err := f.svc.RecordContribution(context.Background(),
		memberActor("stranger", "stranger-key"),
		application.RecordContributionInput{PoolID: pool.PoolID, MemberID: "stranger", Amount: 50},
	)
	if err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDirectContributionSkipsEscrow(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	pool := f.activePool(t, testMembers(3), 50)

	out, err := f.svc.RecordContribution(context.Background(),
		memberActor("m-1", "direct-key"),
		application.RecordContributionInput{PoolID: pool.PoolID, MemberID: "m-1", Amount: 50, Direct: true},
	)
	if err != nil {
		t.Fatalf("direct contribution: %v", err)
	}
	if out.Hold != nil || out.Contribution.EscrowID != "" {
		t.Fatal("direct payment must not create an escrow hold")
	}
	if f.gateway.OutstandingHolds() != 0 {
		t.Fatal("direct payment must not touch the gateway")
	}
}

func TestRecordContributionRetriesAuthorization(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	pool := f.activePool(t, testMembers(3), 50)

	// Two declines, success on the third attempt.
	f.gateway.FailAuthorize = 2
	out, err := f.svc.RecordContribution(context.Background(),
		memberActor("m-1", "retry-key"),
		application.RecordContributionInput{PoolID: pool.PoolID, MemberID: "m-1", Amount: 50},
	)
	if err != nil {
		t.Fatalf("authorization should succeed within retry budget: %v", err)
	}
	if out.Hold == nil || out.Hold.Status != domain.HoldStatusAuthorized {
		t.Fatal("expected an authorized hold")
	}
}

func TestRecordContributionAuthorizationExhaustsRetries(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	pool := f.activePool(t, testMembers(3), 50)

	f.gateway.FailAuthorize = 3
	_, err := f.svc.RecordContribution(context.Background(),
		memberActor("m-1", "exhaust-key"),
		application.RecordContributionInput{PoolID: pool.PoolID, MemberID: "m-1", Amount: 50},
	)
	if !errors.Is(err, domain.ErrGatewayAuthorizationFailed) {
		t.Fatalf("expected ErrGatewayAuthorizationFailed, got %v", err)
	}
	// No contribution row may exist for a failed authorization.
	rows, listErr := f.repos.Contributions.ListByRound(context.Background(), mustCurrentRoundID(t, f, pool.PoolID))
	if listErr != nil {
		t.Fatalf("list contributions: %v", listErr)
	}
	if len(rows) != 0 {
		t.Fatalf("failed authorization must not record a contribution, got %d rows", len(rows))
	}
}

func TestContributionToPausedPoolRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	ctx := context.Background()
	pool := f.activePool(t, testMembers(3), 50)
	if _, err := f.svc.CancelCurrentRound(ctx, operatorActor(""), pool.PoolID, "fraud review"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := f.svc.RecordContribution(ctx,
		memberActor("m-1", "paused-key"),
		application.RecordContributionInput{PoolID: pool.PoolID, MemberID: "m-1", Amount: 50},
	)
	if err != domain.ErrPoolNotActive {
		t.Fatalf("expected ErrPoolNotActive, got %v", err)
	}
}

func TestVoidedContributionKeepsRecordedAt(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	ctx := context.Background()
	pool := f.activePool(t, testMembers(3), 50)
	out := f.contribute(t, pool.PoolID, "m-1", 50)
	recordedAt := out.Contribution.RecordedAt

	if _, err := f.svc.CancelCurrentRound(ctx, operatorActor(""), pool.PoolID, "member dispute"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	rows, err := f.repos.Contributions.ListByRound(ctx, out.Contribution.RoundID)
	if err != nil {
		t.Fatalf("list contributions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one contribution row, got %d", len(rows))
	}
	row := rows[0]
	if !row.Voided || row.VoidedAt == nil {
		t.Fatalf("cancel must void the contribution and stamp voided_at, got %+v", row)
	}
	// The void stamps its own column; the original contribution time is
	// audit data and survives.
	if !row.RecordedAt.Equal(recordedAt) {
		t.Fatalf("recorded_at changed across void: %v vs %v", row.RecordedAt, recordedAt)
	}
}

func mustCurrentRoundID(t *testing.T, f *fixture, poolID string) string {
	t.Helper()
	status, err := f.svc.GetRoundStatus(context.Background(), operatorActor(""), poolID)
	if err != nil {
		t.Fatalf("round status: %v", err)
	}
	return status.Round.RoundID
}
