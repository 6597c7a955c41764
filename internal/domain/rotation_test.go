package domain

import (
	"fmt"
	"testing"
	"time"
)

func rosterOf(count int) []Member {
	out := make([]Member, 0, count)
	// Built in reverse so tests exercise the position sort.
	for i := count; i >= 1; i-- {
		out = append(out, Member{MemberID: fmt.Sprintf("m-%d", i), Position: i})
	}
	return out
}

func TestRecipientForFollowsPositionOrder(t *testing.T) {
	members := rosterOf(5)
	for round := 1; round <= 5; round++ {
		recipient, err := RecipientFor(members, round)
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		want := fmt.Sprintf("m-%d", round)
		if recipient.MemberID != want {
			t.Fatalf("round %d: expected %s, got %s", round, want, recipient.MemberID)
		}
	}
}

func TestRecipientForEachMemberExactlyOnce(t *testing.T) {
	members := rosterOf(7)
	seen := map[string]int{}
	for round := 1; round <= len(members); round++ {
		recipient, err := RecipientFor(members, round)
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		seen[recipient.MemberID]++
	}
	if len(seen) != len(members) {
		t.Fatalf("expected %d distinct recipients, got %d", len(members), len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("%s selected %d times in one rotation", id, count)
		}
	}
}

func TestRecipientForWrapsPastMemberCount(t *testing.T) {
	members := rosterOf(3)
	recipient, err := RecipientFor(members, 4)
	if err != nil {
		t.Fatalf("round 4: %v", err)
	}
	if recipient.MemberID != "m-1" {
		t.Fatalf("round 4 of 3 members should wrap to m-1, got %s", recipient.MemberID)
	}
}

func TestRecipientForRejectsBadInput(t *testing.T) {
	if _, err := RecipientFor(nil, 1); err != ErrInvalidConfiguration {
		t.Fatalf("empty roster: expected ErrInvalidConfiguration, got %v", err)
	}
	if _, err := RecipientFor(rosterOf(3), 0); err != ErrInvalidConfiguration {
		t.Fatalf("round 0: expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestPayoutAmountIsPureFunctionOfConfiguration(t *testing.T) {
	pool := Pool{ContributionAmount: 50, Members: rosterOf(4)}
	if got := pool.PayoutAmount(); got != 200 {
		t.Fatalf("expected 200, got %v", got)
	}
}

func TestValidatePoolInput(t *testing.T) {
	if err := ValidatePoolInput(rosterOf(2), 10, FrequencyMonthly); err != nil {
		t.Fatalf("minimal valid pool rejected: %v", err)
	}
	cases := []struct {
		name      string
		members   []Member
		amount    float64
		frequency Frequency
	}{
		{"single member", rosterOf(1), 10, FrequencyWeekly},
		{"negative amount", rosterOf(3), -1, FrequencyWeekly},
		{"unknown frequency", rosterOf(3), 10, "quarterly"},
		{"duplicate id", []Member{{MemberID: "a", Position: 1}, {MemberID: "a", Position: 2}}, 10, FrequencyWeekly},
		{"position out of range", []Member{{MemberID: "a", Position: 1}, {MemberID: "b", Position: 5}}, 10, FrequencyWeekly},
		{"blank id", []Member{{MemberID: " ", Position: 1}, {MemberID: "b", Position: 2}}, 10, FrequencyWeekly},
	}
	for _, tc := range cases {
		if err := ValidatePoolInput(tc.members, tc.amount, tc.frequency); err != ErrInvalidConfiguration {
			t.Fatalf("%s: expected ErrInvalidConfiguration, got %v", tc.name, err)
		}
	}
}

func TestNextScheduledDate(t *testing.T) {
	from := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	if got := NextScheduledDate(FrequencyWeekly, from); !got.Equal(from.AddDate(0, 0, 7)) {
		t.Fatalf("weekly: got %v", got)
	}
	if got := NextScheduledDate(FrequencyBiweekly, from); !got.Equal(from.AddDate(0, 0, 14)) {
		t.Fatalf("biweekly: got %v", got)
	}
	if got := NextScheduledDate(FrequencyMonthly, from); !got.Equal(time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("monthly: got %v", got)
	}
}

func TestHoldExpiry(t *testing.T) {
	now := time.Now().UTC()
	hold := EscrowHold{Status: HoldStatusAuthorized, ReleaseDeadline: now.Add(-time.Minute)}
	if !hold.Expired(now) {
		t.Fatal("authorized hold past its deadline should be expired")
	}
	hold.Status = HoldStatusCaptured
	if hold.Expired(now) {
		t.Fatal("captured holds do not expire")
	}
	hold.Status = HoldStatusAuthorized
	hold.ReleaseDeadline = now.Add(time.Minute)
	if hold.Expired(now) {
		t.Fatal("hold before its deadline is not expired")
	}
}
