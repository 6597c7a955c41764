package memory

import (
	"context"
	"sync"
)

// RoundLocker serializes round mutation with in-process keyed mutexes. A
// single-node deployment needs nothing more; multi-instance deployments use
// the Redis locker instead.
type RoundLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRoundLocker() *RoundLocker {
	return &RoundLocker{locks: map[string]*sync.Mutex{}}
}

func (l *RoundLocker) Acquire(_ context.Context, roundID string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[roundID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[roundID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
