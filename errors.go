package raft

import "errors"

// ErrDestroyed is returned by WaitForCaughtUp (and by Start) once a
// replicator has been destroyed or is unknown. The other control-surface
// functions report that case with a false result or do nothing.
var ErrDestroyed = errors.New("replicator destroyed")

// ErrAlreadyWaiting is returned by WaitForCaughtUp when a catch-up closure
// is already registered.
var ErrAlreadyWaiting = errors.New("catch-up closure already registered")

// ErrStopped is delivered to a pending catch-up closure when the replicator
// is destroyed by Stop or after SendTimeoutNowAndStop (ESTOP in spec
// terms). The latch's error callback itself receives errCodeStopped.
var ErrStopped = errors.New("replicator stopped")

// ErrTimedOut is logged when the heartbeat timer expires (ETIMEDOUT in
// spec terms); the latch's error callback receives errCodeTimedOut. It is
// not fatal.
var ErrTimedOut = errors.New("heartbeat timer expired")

// ErrHigherTerm is delivered to catch-up closures when a peer responds
// with a term higher than ours (EPERM in spec terms).
var ErrHigherTerm = errors.New("observed higher term, stepping down")

// ErrCatchUpTimedOut is delivered to a catch-up closure whose due time
// elapsed before the peer caught up.
var ErrCatchUpTimedOut = errors.New("catch-up wait timed out")

// ErrSnapshotUnavailable is logged when the snapshot store has nothing to
// offer a peer that needs one.
var ErrSnapshotUnavailable = errors.New("no snapshot available")
