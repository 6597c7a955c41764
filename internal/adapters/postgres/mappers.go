package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
)

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func toPoolModel(p domain.Pool) poolModel {
	return poolModel{
		PoolID:             p.PoolID,
		Name:               p.Name,
		ContributionAmount: p.ContributionAmount,
		Frequency:          string(p.Frequency),
		CurrentRound:       p.CurrentRound,
		TotalRounds:        p.TotalRounds,
		Status:             string(p.Status),
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func toMemberModels(p domain.Pool) []poolMemberModel {
	rows := make([]poolMemberModel, 0, len(p.Members))
	for _, m := range p.Members {
		rows = append(rows, poolMemberModel{
			PoolID:           p.PoolID,
			MemberID:         m.MemberID,
			DisplayName:      m.DisplayName,
			Contact:          m.Contact,
			Position:         m.Position,
			PayoutMethodType: m.PayoutMethod.Type,
			PayoutHandle:     m.PayoutMethod.Handle,
		})
	}
	return rows
}

func toDomainPool(row poolModel, members []poolMemberModel) domain.Pool {
	pool := domain.Pool{
		PoolID:             row.PoolID,
		Name:               row.Name,
		ContributionAmount: row.ContributionAmount,
		Frequency:          domain.Frequency(row.Frequency),
		CurrentRound:       row.CurrentRound,
		TotalRounds:        row.TotalRounds,
		Status:             domain.PoolStatus(row.Status),
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	pool.Members = make([]domain.Member, 0, len(members))
	for _, m := range members {
		pool.Members = append(pool.Members, domain.Member{
			MemberID:    m.MemberID,
			DisplayName: m.DisplayName,
			Contact:     m.Contact,
			Position:    m.Position,
			PayoutMethod: domain.PayoutMethod{
				Type:   m.PayoutMethodType,
				Handle: m.PayoutHandle,
			},
		})
	}
	return pool
}

func toRoundModel(r domain.Round) roundModel {
	return roundModel{
		RoundID:            r.RoundID,
		PoolID:             r.PoolID,
		Number:             r.Number,
		RecipientMemberID:  r.RecipientMemberID,
		ScheduledPayoutAt:  r.ScheduledPayoutAt,
		Status:             string(r.Status),
		PayoutProcessed:    r.PayoutProcessed,
		PayoutAmountCached: r.PayoutAmountCached,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func toDomainRound(row roundModel) domain.Round {
	return domain.Round{
		RoundID:            row.RoundID,
		PoolID:             row.PoolID,
		Number:             row.Number,
		RecipientMemberID:  row.RecipientMemberID,
		ScheduledPayoutAt:  row.ScheduledPayoutAt,
		Status:             domain.RoundStatus(row.Status),
		PayoutProcessed:    row.PayoutProcessed,
		PayoutAmountCached: row.PayoutAmountCached,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

func toContributionModel(c domain.Contribution) contributionModel {
	return contributionModel{
		ContributionID: c.ContributionID,
		RoundID:        c.RoundID,
		PoolID:         c.PoolID,
		MemberID:       c.MemberID,
		Amount:         c.Amount,
		EscrowID:       c.EscrowID,
		Voided:         c.Voided,
		RecordedAt:     c.RecordedAt,
		VoidedAt:       c.VoidedAt,
	}
}

func toDomainContribution(row contributionModel) domain.Contribution {
	return domain.Contribution{
		ContributionID: row.ContributionID,
		RoundID:        row.RoundID,
		PoolID:         row.PoolID,
		MemberID:       row.MemberID,
		Amount:         row.Amount,
		EscrowID:       row.EscrowID,
		Voided:         row.Voided,
		RecordedAt:     row.RecordedAt,
		VoidedAt:       row.VoidedAt,
	}
}

func toHoldModel(h domain.EscrowHold) escrowHoldModel {
	return escrowHoldModel{
		HoldID:          h.HoldID,
		ContributionID:  h.ContributionID,
		PoolID:          h.PoolID,
		RoundID:         h.RoundID,
		MemberID:        h.MemberID,
		Amount:          h.Amount,
		Status:          string(h.Status),
		GatewayHoldRef:  h.GatewayHoldRef,
		GatewayCapRef:   h.GatewayCapRef,
		HoldCreatedAt:   h.HoldCreatedAt,
		ReleaseDeadline: h.ReleaseDeadline,
		ReleasedAt:      h.ReleasedAt,
		UpdatedAt:       h.UpdatedAt,
	}
}

func toDomainHold(row escrowHoldModel) domain.EscrowHold {
	return domain.EscrowHold{
		HoldID:          row.HoldID,
		ContributionID:  row.ContributionID,
		PoolID:          row.PoolID,
		RoundID:         row.RoundID,
		MemberID:        row.MemberID,
		Amount:          row.Amount,
		Status:          domain.HoldStatus(row.Status),
		GatewayHoldRef:  row.GatewayHoldRef,
		GatewayCapRef:   row.GatewayCapRef,
		HoldCreatedAt:   row.HoldCreatedAt,
		ReleaseDeadline: row.ReleaseDeadline,
		ReleasedAt:      row.ReleasedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func toPayoutModel(p domain.Payout) payoutModel {
	return payoutModel{
		PayoutID:      p.PayoutID,
		PoolID:        p.PoolID,
		RoundID:       p.RoundID,
		RecipientID:   p.RecipientID,
		GrossAmount:   p.GrossAmount,
		PlatformFee:   p.PlatformFee,
		NetAmount:     p.NetAmount,
		MethodType:    p.Method.Type,
		MethodHandle:  p.Method.Handle,
		GatewayRef:    p.GatewayRef,
		EarlyReleased: p.EarlyReleased,
		ReleasedAt:    p.ReleasedAt,
	}
}

func toDomainPayout(row payoutModel) domain.Payout {
	return domain.Payout{
		PayoutID:      row.PayoutID,
		PoolID:        row.PoolID,
		RoundID:       row.RoundID,
		RecipientID:   row.RecipientID,
		GrossAmount:   row.GrossAmount,
		PlatformFee:   row.PlatformFee,
		NetAmount:     row.NetAmount,
		Method:        domain.PayoutMethod{Type: row.MethodType, Handle: row.MethodHandle},
		GatewayRef:    row.GatewayRef,
		EarlyReleased: row.EarlyReleased,
		ReleasedAt:    row.ReleasedAt,
	}
}

func toEarlyPayoutModel(r domain.EarlyPayoutRequest) earlyPayoutModel {
	return earlyPayoutModel{
		RequestID:   r.RequestID,
		PoolID:      r.PoolID,
		RoundID:     r.RoundID,
		RequestedBy: r.RequestedBy,
		Reason:      r.Reason,
		Outcome:     string(r.Outcome),
		DenyReason:  r.DenyReason,
		RequestedAt: r.RequestedAt,
		ResolvedAt:  r.ResolvedAt,
	}
}

func toDomainEarlyPayout(row earlyPayoutModel) domain.EarlyPayoutRequest {
	return domain.EarlyPayoutRequest{
		RequestID:   row.RequestID,
		PoolID:      row.PoolID,
		RoundID:     row.RoundID,
		RequestedBy: row.RequestedBy,
		Reason:      row.Reason,
		Outcome:     domain.EarlyPayoutOutcome(row.Outcome),
		DenyReason:  row.DenyReason,
		RequestedAt: row.RequestedAt,
		ResolvedAt:  row.ResolvedAt,
	}
}
