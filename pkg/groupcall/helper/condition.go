package helper

import (
	"context"
	"sync"
	"time"
)

// Condition is a condition variable bound to a Locker,
// like sync.Cond, but whose waits can be bounded by a
// deadline or by a context.
//
// Waiters park on a channel that is closed and replaced
// on every Broadcast, so a Broadcast issued while holding
// the lock is never lost by a goroutine that read the
// channel under the same lock.
type Condition struct {
	// Lock held while observing or changing the condition.
	L sync.Locker

	// Closed on broadcast. Guarded by L.
	signal chan struct{}
}

func NewCondition(l sync.Locker) *Condition {
	return &Condition{
		L:      l,
		signal: make(chan struct{}),
	}
}

// Broadcast wakes all goroutines waiting on the condition.
// Must be called while holding L.
func (c *Condition) Broadcast() {
	close(c.signal)
	c.signal = make(chan struct{})
}

// Wait atomically unlocks L and suspends until a Broadcast.
// L is locked again before returning.
func (c *Condition) Wait() {
	c.WaitUntil(context.Background(), time.Time{})
}

// WaitUntil atomically unlocks L and suspends until a Broadcast,
// the deadline is reached or the context is done. A zero deadline
// does not bound the wait. L is locked again before returning.
//
// Returns `true` if woken by a Broadcast.
func (c *Condition) WaitUntil(ctx context.Context, deadline time.Time) bool {
	signal := c.signal
	c.L.Unlock()
	defer c.L.Lock()

	var expired <-chan time.Time
	if !deadline.IsZero() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		timer := time.NewTimer(remaining)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-signal:
		return true
	case <-expired:
		return false
	case <-ctx.Done():
		return false
	}
}
