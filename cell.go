package replsup

import (
	"sync/atomic"
	"time"
)

// cell is the single point of truth for the supervisor's lifecycle
// state. It holds one immutable *lifeState at a time and supports an
// atomic compare-and-swap plus a bounded blocking wait for the value to
// change. All coordination in this package is built from these two
// operations; no lock is ever held across a transition.
//
// States are compared by pointer identity. A state value is created
// inside exactly one transition attempt and never reused, so identity
// comparison is sufficient and avoids any ABA ambiguity.
type cell struct {
	cur atomic.Pointer[cellEntry]
}

// cellEntry pairs a state with a broadcast channel that is closed the
// moment the entry is superseded. Waiters select on the channel instead
// of polling.
type cellEntry struct {
	st   *lifeState
	gone chan struct{}
}

// newCell creates a cell holding the given initial state
func newCell(initial *lifeState) *cell {
	c := &cell{}
	c.cur.Store(&cellEntry{st: initial, gone: make(chan struct{})})
	return c
}

// load returns the current state
func (c *cell) load() *lifeState {
	return c.cur.Load().st
}

// compareAndSwap replaces the current state with next iff the current
// state is identical to expected. On success all waiters blocked on the
// superseded state are released before the call returns.
func (c *cell) compareAndSwap(expected, next *lifeState) bool {
	for {
		entry := c.cur.Load()
		if entry.st != expected {
			return false
		}
		fresh := &cellEntry{st: next, gone: make(chan struct{})}
		if c.cur.CompareAndSwap(entry, fresh) {
			close(entry.gone)
			return true
		}
		// Entry changed under us; re-check whether expected still holds.
		// States are never reinstalled, so this re-read will fail fast.
	}
}

// awaitChange blocks until the stored state is no longer expected,
// returning the new state, or ErrTimeout if timeout elapses first. If
// the stored state already differs from expected it returns immediately.
func (c *cell) awaitChange(expected *lifeState, timeout time.Duration) (*lifeState, error) {
	entry := c.cur.Load()
	if entry.st != expected {
		return entry.st, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-entry.gone:
		return c.load(), nil
	case <-timer.C:
		// A transition may have raced the timer; prefer reporting it.
		if cur := c.load(); cur != expected {
			return cur, nil
		}
		return nil, ErrTimeout
	}
}
