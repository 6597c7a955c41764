package application

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/pgil256/juntas-seguras-sub008/internal/contracts"
	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
)

// CheckEarlyPayoutEligibility is a pure policy check: it never errors for
// business conditions, it answers them.
func (s *Service) CheckEarlyPayoutEligibility(ctx context.Context, actor Actor, poolID string) (domain.EarlyPayoutStatus, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.EarlyPayoutStatus{}, domain.ErrUnauthorized
	}
	pool, round, err := s.currentRound(ctx, poolID)
	if err != nil {
		return domain.EarlyPayoutStatus{}, err
	}
	return s.eligibility(ctx, pool, round)
}

func (s *Service) eligibility(ctx context.Context, pool domain.Pool, round domain.Round) (domain.EarlyPayoutStatus, error) {
	_, missing, err := s.collectionState(ctx, pool, round.RoundID)
	if err != nil {
		return domain.EarlyPayoutStatus{}, err
	}
	recipient, err := domain.RecipientFor(pool.Members, round.Number)
	if err != nil {
		return domain.EarlyPayoutStatus{}, err
	}
	status := domain.EarlyPayoutStatus{
		MissingContributions:  missing,
		RecipientConnectState: domain.ConnectStatusOK,
	}
	// A missing payout method blocks regardless of contribution state.
	if !recipient.PayoutMethod.Configured() {
		status.RecipientConnectState = domain.ConnectStatusNoPayoutMethod
		status.Reason = "recipient has no payout method configured"
		return status, nil
	}
	if round.PayoutProcessed {
		status.Reason = "round already processed"
		return status, nil
	}
	if len(missing) > 0 {
		status.Reason = "waiting on contributions"
		return status, nil
	}
	status.Allowed = true
	status.Reason = "eligible for early release"
	return status, nil
}

type InitiateEarlyPayoutInput struct {
	PoolID       string
	Reason       string
	ApprovalCode string
}

type EarlyPayoutOutput struct {
	Request domain.EarlyPayoutRequest `json:"request"`
	Status  domain.EarlyPayoutStatus  `json:"status"`
	Result  *PayoutResult             `json:"result,omitempty"`
}

// InitiateEarlyPayout fires the current round's payout ahead of its
// scheduled date. It only changes timing: every scheduler invariant still
// holds, and future rounds' dates never shift.
func (s *Service) InitiateEarlyPayout(ctx context.Context, actor Actor, input InitiateEarlyPayoutInput) (EarlyPayoutOutput, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return EarlyPayoutOutput{}, domain.ErrUnauthorized
	}
	if !actor.Operator() {
		return EarlyPayoutOutput{}, domain.ErrForbidden
	}
	if strings.TrimSpace(input.Reason) == "" {
		return EarlyPayoutOutput{}, domain.ErrInvalidInput
	}
	if err := s.approvals.Verify(ctx, input.ApprovalCode); err != nil {
		return EarlyPayoutOutput{}, domain.ErrForbidden
	}
	pool, round, err := s.currentRound(ctx, input.PoolID)
	if err != nil {
		return EarlyPayoutOutput{}, err
	}

	now := s.nowFn()
	request := domain.EarlyPayoutRequest{
		RequestID:   uuid.NewString(),
		PoolID:      pool.PoolID,
		RoundID:     round.RoundID,
		RequestedBy: actor.SubjectID,
		Reason:      strings.TrimSpace(input.Reason),
		Outcome:     domain.EarlyPayoutPending,
		RequestedAt: now,
	}
	if err := s.earlyPayouts.Create(ctx, request); err != nil {
		return EarlyPayoutOutput{}, err
	}

	status, err := s.eligibility(ctx, pool, round)
	if err != nil {
		return EarlyPayoutOutput{}, err
	}
	if !status.Allowed {
		request = s.resolveEarlyPayout(ctx, request, domain.EarlyPayoutDenied, status.Reason)
		s.notify(ctx, contracts.Notification{
			Kind:       contracts.NotifyEarlyPayoutDenied,
			PoolID:     pool.PoolID,
			RoundID:    round.RoundID,
			MemberID:   round.RecipientMemberID,
			Payload:    map[string]any{"reason": status.Reason},
			OccurredAt: s.nowFn(),
		})
		return EarlyPayoutOutput{Request: request, Status: status}, nil
	}

	result, err := s.triggerPayout(ctx, pool, round, true, actor.RequestID)
	if err != nil {
		// Gateway or consistency failure: leave the request pending for
		// operator follow-up, the caller gets the error.
		return EarlyPayoutOutput{}, err
	}
	switch result.Decision {
	case DecisionReadyToRelease, DecisionAlreadyProcessed:
		request = s.resolveEarlyPayout(ctx, request, domain.EarlyPayoutApproved, "")
	default:
		// Raced a contribution void between eligibility and trigger.
		status.Allowed = false
		status.Reason = "waiting on contributions"
		status.MissingContributions = result.Missing
		request = s.resolveEarlyPayout(ctx, request, domain.EarlyPayoutDenied, status.Reason)
	}
	return EarlyPayoutOutput{Request: request, Status: status, Result: &result}, nil
}

func (s *Service) resolveEarlyPayout(ctx context.Context, request domain.EarlyPayoutRequest, outcome domain.EarlyPayoutOutcome, denyReason string) domain.EarlyPayoutRequest {
	now := s.nowFn()
	request.Outcome = outcome
	request.DenyReason = denyReason
	request.ResolvedAt = &now
	if err := s.earlyPayouts.Update(ctx, request); err != nil {
		s.logger.ErrorContext(ctx, "early payout request update failed",
			"module", "application",
			"operation", "resolve_early_payout",
			"outcome", "failure",
			"request_id", request.RequestID,
			"error", err,
		)
	}
	_ = s.enqueueEarlyPayoutResolved(ctx, request)
	return request
}
