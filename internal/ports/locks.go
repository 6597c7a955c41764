package ports

import "context"

// RoundLocker serializes mutating operations on a single round. Acquire
// blocks until the lock is held or ctx is done; the returned release func
// must be called exactly once. Pools are independent: locks are keyed by
// round, never across pools.
type RoundLocker interface {
	Acquire(ctx context.Context, roundID string) (release func(), err error)
}
