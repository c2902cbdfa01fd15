package raft

import "sync"

// catchUpClosure is the single-occupancy catch-up notification described
// in spec.md §4.7. The timer and the success path race to deliver exactly
// once; the fired flag, guarded by mu, settles that race. errorWasSet is
// set under the owning replicator's latch when the success or destroy path
// takes the closure, and is not read by fire.
type catchUpClosure struct {
	maxMargin   uint64
	cb          func(err error)
	timer       TimerHandle
	errorWasSet bool

	mu sync.Mutex
	fired bool
}

// fire delivers err to the closure exactly once. Subsequent calls are
// no-ops, satisfying the "catch-up idempotence" invariant (spec.md §8.7).
func (c *catchUpClosure) fire(err error) {
	c.mu.Lock()
	if c.fired {
		c.mu.Unlock()
		return
	}
	c.fired = true
	c.mu.Unlock()
	if c.timer != nil {
		c.timer.Cancel()
	}
	c.cb(err)
}

// caughtUp reports whether the peer has closed to within margin of the
// log's last index, per spec.md §4.7's success condition.
func caughtUp(nextIndex, margin, lastIndex uint64) bool {
	return nextIndex-1+margin >= lastIndex
}
