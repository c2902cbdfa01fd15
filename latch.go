package raft

import "sync"

// latch is the single synchronization primitive exposed to the replicator
// state machine. It is reentrant only in the sense that a caller holding a
// *latchGuard may pass it down to callees instead of acquiring a second
// one; Go has no goroutine-local recursive mutex, so reentrancy is modeled
// explicitly as spec.md's design notes (§9) recommend, via a guard object
// threaded through the call chain rather than re-locking.
type latch struct {
	mu        sync.Mutex
	destroyed bool
	onError   func(g *latchGuard, code errorCode)
	joinCh    chan struct{}
}

// errorCode enumerates the fatal/non-fatal conditions the latch can
// deliver to the owning replicator's error callback.
type errorCode int

const (
	errCodeStopped errorCode = iota
	errCodeTimedOut
)

func newLatch(onError func(g *latchGuard, code errorCode)) *latch {
	return &latch{
		onError: onError,
		joinCh:  make(chan struct{}),
	}
}

// latchGuard represents possession of the latch. It is returned by Lock
// and consumed by Unlock or UnlockAndDestroy.
type latchGuard struct {
	l *latch
}

// Lock acquires the latch, returning a guard, or (nil, false) if the
// replicator has already been destroyed.
func (l *latch) Lock() (*latchGuard, bool) {
	l.mu.Lock()
	if l.destroyed {
		l.mu.Unlock()
		return nil, false
	}
	return &latchGuard{l: l}, true
}

// Unlock releases the latch held by g.
func (g *latchGuard) Unlock() {
	g.l.mu.Unlock()
}

// UnlockAndDestroy marks the latch destroyed and releases it. It is
// one-way: every subsequent Lock call returns (nil, false).
func (g *latchGuard) UnlockAndDestroy() {
	g.l.destroyed = true
	close(g.l.joinCh)
	g.l.mu.Unlock()
}

// SetError delivers code to the owning replicator's error callback while
// holding g. The callback receives g itself and is responsible for
// releasing (or destroying) it; SetError never unlocks on its own.
func (g *latchGuard) SetError(code errorCode) {
	g.l.onError(g, code)
}

// Join blocks until the latch has been destroyed.
func (l *latch) Join() {
	<-l.joinCh
}

// destroyedState reports whether the latch has already been destroyed,
// without acquiring it. Used only for diagnostics/metrics, never to gate
// a state mutation.
func (l *latch) destroyedState() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.destroyed
}
