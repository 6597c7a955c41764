package unit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pgil256/juntas-seguras-sub008/internal/application"
	"github.com/pgil256/juntas-seguras-sub008/internal/contracts"
	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
)

func TestEarlyPayoutRequiresOperatorAndApproval(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	ctx := context.Background()
	pool := f.activePool(t, testMembers(3), 50)

	_, err := f.svc.InitiateEarlyPayout(ctx, memberActor("m-1", ""), application.InitiateEarlyPayoutInput{
		PoolID:       pool.PoolID,
		Reason:       "travel emergency",
		ApprovalCode: approvalCode,
	})
	if err != domain.ErrForbidden {
		t.Fatalf("member initiation should be forbidden, got %v", err)
	}

	_, err = f.svc.InitiateEarlyPayout(ctx, operatorActor(""), application.InitiateEarlyPayoutInput{
		PoolID:       pool.PoolID,
		Reason:       "travel emergency",
		ApprovalCode: "999999",
	})
	if err != domain.ErrForbidden {
		t.Fatalf("wrong approval code should be forbidden, got %v", err)
	}

	_, err = f.svc.InitiateEarlyPayout(ctx, operatorActor(""), application.InitiateEarlyPayoutInput{
		PoolID:       pool.PoolID,
		ApprovalCode: approvalCode,
	})
	if err != domain.ErrInvalidInput {
		t.Fatalf("missing reason should be invalid, got %v", err)
	}
}

func TestEarlyPayoutDeniedWhileContributionsMissing(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	ctx := context.Background()
	pool := f.activePool(t, testMembers(4), 50)
	for i := 1; i <= 3; i++ {
		f.contribute(t, pool.PoolID, fmt.Sprintf("m-%d", i), 50)
	}

	out, err := f.svc.InitiateEarlyPayout(ctx, operatorActor(""), application.InitiateEarlyPayoutInput{
		PoolID:       pool.PoolID,
		Reason:       "recipient hardship",
		ApprovalCode: approvalCode,
	})
	if err != nil {
		t.Fatalf("denied early payout is an answer, not an error: %v", err)
	}
	if out.Status.Allowed {
		t.Fatal("early payout must be denied with a contribution missing")
	}
	if out.Request.Outcome != domain.EarlyPayoutDenied {
		t.Fatalf("request should resolve denied, got %s", out.Request.Outcome)
	}
	if len(out.Status.MissingContributions) != 1 || out.Status.MissingContributions[0] != "m-4" {
		t.Fatalf("expected m-4 missing, got %v", out.Status.MissingContributions)
	}
	if len(f.gateway.Payouts()) != 0 {
		t.Fatal("denied request must not move money")
	}

	var denied bool
	for _, n := range f.sink.Notifications() {
		if n.Kind == contracts.NotifyEarlyPayoutDenied {
			denied = true
		}
	}
	if !denied {
		t.Fatal("expected an EarlyPayoutDenied notification")
	}
}

func TestEarlyPayoutDeniedWithoutPayoutMethod(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	ctx := context.Background()
	members := testMembers(3)
	members[0].PayoutMethod = domain.PayoutMethod{}
	pool := f.activePool(t, members, 50)
	for i := 1; i <= 3; i++ {
		f.contribute(t, pool.PoolID, fmt.Sprintf("m-%d", i), 50)
	}

	status, err := f.svc.CheckEarlyPayoutEligibility(ctx, operatorActor(""), pool.PoolID)
	if err != nil {
		t.Fatalf("eligibility: %v", err)
	}
	if status.Allowed {
		t.Fatal("missing payout method must block early release")
	}
	if status.RecipientConnectState != domain.ConnectStatusNoPayoutMethod {
		t.Fatalf("expected %q connect state, got %q", domain.ConnectStatusNoPayoutMethod, status.RecipientConnectState)
	}
}

func TestEarlyPayoutApprovedReleasesWithoutShiftingSchedule(t *testing.T) {
	t.Parallel()

	f := newFixture(0)
	ctx := context.Background()
	pool := f.activePool(t, testMembers(3), 50)
	for i := 1; i <= 3; i++ {
		f.contribute(t, pool.PoolID, fmt.Sprintf("m-%d", i), 50)
	}

	before, err := f.svc.GetRoundStatus(ctx, operatorActor(""), pool.PoolID)
	if err != nil {
		t.Fatalf("round status: %v", err)
	}
	round1Date := before.Round.ScheduledPayoutAt

	out, err := f.svc.InitiateEarlyPayout(ctx, operatorActor(""), application.InitiateEarlyPayoutInput{
		PoolID:       pool.PoolID,
		Reason:       "recipient hardship",
		ApprovalCode: approvalCode,
	})
	if err != nil {
		t.Fatalf("early payout: %v", err)
	}
	if !out.Status.Allowed || out.Request.Outcome != domain.EarlyPayoutApproved {
		t.Fatalf("expected approved request, got allowed=%v outcome=%s", out.Status.Allowed, out.Request.Outcome)
	}
	if out.Result == nil || out.Result.Payout == nil {
		t.Fatal("approved early payout must carry the release result")
	}
	if !out.Result.Payout.EarlyReleased {
		t.Fatal("payout must be flagged as early")
	}

	// Round 2 keeps the original cadence, anchored on round 1's scheduled
	// date rather than the early release time.
	after, err := f.svc.GetRoundStatus(ctx, operatorActor(""), pool.PoolID)
	if err != nil {
		t.Fatalf("round status after release: %v", err)
	}
	want := round1Date.AddDate(0, 0, 7)
	if !after.Round.ScheduledPayoutAt.Equal(want) {
		t.Fatalf("round 2 should be scheduled at %v, got %v", want, after.Round.ScheduledPayoutAt)
	}
	if after.Round.ScheduledPayoutAt.Sub(time.Now().UTC()) < 13*24*time.Hour {
		t.Fatal("early release must not pull future rounds closer")
	}
}
