// Package flightlock provides per-flight mutual exclusion for the seat
// and baggage engines.  Holding the lock for one key never blocks a
// caller working on another key, so unrelated flights proceed in
// parallel.
package flightlock

import (
	"context"
	"sync"
)

// Locker grants exclusive access to a key.  Lock blocks until the key is
// free or ctx is done.  The returned unlock func must be called exactly
// once; extra calls are ignored.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// SeatKey is the lock key guarding the seats of a flight.
func SeatKey(flightID string) string { return flightID }

// BaggageKey is the lock key guarding the baggage records of a flight.
func BaggageKey(flightID string) string { return flightID + "/baggage" }

// Local is an in-process Locker.  Each key maps to a one-slot channel
// that is created on first use and kept for the life of the process;
// the key space is bounded by the number of flights.
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocal returns an empty in-process locker.
func NewLocal() *Local {
	return &Local{slots: make(map[string]chan struct{})}
}

func (l *Local) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

// Lock implements Locker.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() { once.Do(func() { <-ch }) }, nil
}
