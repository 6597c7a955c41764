package domain

import "sort"

// RecipientFor resolves the payout recipient for a round: members sorted
// ascending by position, recipient position = ((N-1) mod memberCount) + 1.
// Pure and deterministic; it consumes whatever position values it is given,
// so upstream removal policy (renumbering vs gap) does not concern it.
func RecipientFor(members []Member, roundNumber int) (Member, error) {
	if len(members) == 0 || roundNumber < 1 {
		return Member{}, ErrInvalidConfiguration
	}
	ordered := SortedByPosition(members)
	return ordered[(roundNumber-1)%len(ordered)], nil
}

// SortedByPosition returns a copy of members in ascending position order.
func SortedByPosition(members []Member) []Member {
	out := make([]Member, len(members))
	copy(out, members)
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
