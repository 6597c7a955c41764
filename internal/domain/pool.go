package domain

import (
	"strings"
	"time"
)

type PoolStatus string
type Frequency string

const (
	PoolStatusPending   PoolStatus = "pending"
	PoolStatusActive    PoolStatus = "active"
	PoolStatusCompleted PoolStatus = "completed"
	PoolStatusPaused    PoolStatus = "paused"
)

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// PayoutMethod is the handle funds are forwarded to. Absent (empty Type)
// means a payout cannot be delivered automatically for that member.
type PayoutMethod struct {
	Type   string `json:"type"`
	Handle string `json:"handle"`
}

func (m PayoutMethod) Configured() bool {
	return strings.TrimSpace(m.Type) != "" && strings.TrimSpace(m.Handle) != ""
}

type Member struct {
	MemberID     string       `json:"member_id"`
	DisplayName  string       `json:"display_name"`
	Contact      string       `json:"contact"`
	Position     int          `json:"position"`
	PayoutMethod PayoutMethod `json:"payout_method"`
}

// Pool is the rotating savings group. Membership and contribution amount are
// fixed at creation; one round exists per member.
type Pool struct {
	PoolID             string     `json:"pool_id"`
	Name               string     `json:"name"`
	Members            []Member   `json:"members"`
	ContributionAmount float64    `json:"contribution_amount"`
	Frequency          Frequency  `json:"frequency"`
	CurrentRound       int        `json:"current_round"`
	TotalRounds        int        `json:"total_rounds"`
	Status             PoolStatus `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// PayoutAmount is a pure function of pool configuration, independent of
// round number or history.
func (p Pool) PayoutAmount() float64 {
	return p.ContributionAmount * float64(len(p.Members))
}

func (p Pool) MemberByID(memberID string) (Member, bool) {
	for _, m := range p.Members {
		if m.MemberID == memberID {
			return m, true
		}
	}
	return Member{}, false
}

func ValidFrequency(f Frequency) bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	default:
		return false
	}
}

// ValidatePoolInput checks the roster and amount constraints enforced at
// creation time: at least two members, positive fixed amount, and positions
// forming a unique 1..N sequence.
func ValidatePoolInput(members []Member, contributionAmount float64, frequency Frequency) error {
	if len(members) < 2 {
		return ErrInvalidConfiguration
	}
	if contributionAmount <= 0 {
		return ErrInvalidConfiguration
	}
	if !ValidFrequency(frequency) {
		return ErrInvalidConfiguration
	}
	seenPos := make(map[int]bool, len(members))
	seenID := make(map[string]bool, len(members))
	for _, m := range members {
		if strings.TrimSpace(m.MemberID) == "" {
			return ErrInvalidConfiguration
		}
		if m.Position < 1 || m.Position > len(members) {
			return ErrInvalidConfiguration
		}
		if seenPos[m.Position] || seenID[m.MemberID] {
			return ErrInvalidConfiguration
		}
		seenPos[m.Position] = true
		seenID[m.MemberID] = true
	}
	return nil
}

// NextScheduledDate returns the payout date one cycle after the given time.
func NextScheduledDate(frequency Frequency, from time.Time) time.Time {
	switch frequency {
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyBiweekly:
		return from.AddDate(0, 0, 14)
	case FrequencyMonthly:
		return from.AddDate(0, 1, 0)
	default:
		return from.AddDate(0, 0, 7)
	}
}
