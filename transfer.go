package raft

import "time"

// defaultTimeoutNowRPCTimeout is the caller-supplied deadline used when
// one isn't explicitly provided, mirroring the teacher's own
// rpcTimeOut/rpcSnapshotTimeout constants in spirit (a short, fixed
// deadline distinct from the no-deadline append/snapshot RPCs).
const defaultTimeoutNowRPCTimeout = 200 * time.Millisecond

// TransferLeadership is spec.md §6's `transfer_leadership(id, index)`.
// If the peer has already succeeded at least once and is at or past
// logIndex, TimeoutNow is sent immediately with no stop-after-finish.
// Otherwise the index is latched and TimeoutNow fires automatically once
// a later successful replication crosses it (spec.md §4.8).
func TransferLeadership(id ID, logIndex uint64) bool {
	r, ok := lookupReplicator(id)
	if !ok {
		return false
	}
	g, ok := r.latch.Lock()
	if !ok {
		return false
	}

	if r.hasSucceeded && r.nextIndex > logIndex {
		r.sendTimeoutNowLocked(g, false)
		return true
	}

	r.timeoutNowIndex = logIndex
	g.Unlock()
	return true
}

// StopTransferLeadership is spec.md §6's `stop_transfer_leadership(id)`.
func StopTransferLeadership(id ID) bool {
	r, ok := lookupReplicator(id)
	if !ok {
		return false
	}
	g, ok := r.latch.Lock()
	if !ok {
		return false
	}
	r.timeoutNowIndex = 0
	g.Unlock()
	return true
}

// SendTimeoutNowAndStop is spec.md §6's
// `send_timeout_now_and_stop(id, timeout_ms)`: send TimeoutNow with a
// short caller-supplied deadline, then destroy the replicator when the
// RPC completes, regardless of outcome.
func SendTimeoutNowAndStop(id ID, timeout time.Duration) bool {
	r, ok := lookupReplicator(id)
	if !ok {
		return false
	}
	g, ok := r.latch.Lock()
	if !ok {
		return false
	}
	if timeout <= 0 {
		timeout = defaultTimeoutNowRPCTimeout
	}
	r.sendTimeoutNowWithTimeoutLocked(g, true, timeout)
	return true
}

// maybeSendTimeoutNowLocked implements spec.md §4.5's final step: if a
// transfer-leadership index is latched and next_index has now crossed
// it, fire TimeoutNow automatically. Must be called while g is held and
// must not release g.
func (r *Replicator) maybeSendTimeoutNowLocked(g *latchGuard) {
	if r.timeoutNowIndex > 0 && r.timeoutNowIndex < r.nextIndex {
		r.timeoutNowIndex = 0
		r.sendTimeoutNowInlineLocked()
	}
}

// sendTimeoutNowInlineLocked fires TimeoutNow without consuming g; used
// from within a call chain that will release g itself afterward (the
// automatic transfer path in applyResponseLocked/applySnapshotResponseLocked).
func (r *Replicator) sendTimeoutNowInlineLocked() {
	if r.timeoutNowInFly != nil {
		return
	}
	req := &TimeoutNowRequest{
		Term:     r.opts.Term,
		GroupID:  r.opts.GroupID,
		LeaderID: r.opts.LeaderID,
		PeerID:   r.opts.PeerID,
	}
	version := r.version
	r.timeoutNowInFly = r.opts.RPC.TimeoutNow(r.opts.Endpoint, req, defaultTimeoutNowRPCTimeout, func(resp *TimeoutNowResponse, err error) {
		r.onTimeoutNowComplete(version, req, resp, err, false)
	})
}

// sendTimeoutNowLocked consumes g: it fires TimeoutNow and releases the
// latch. stopAfter selects whether the RPC completion should destroy the
// replicator (the explicit send_timeout_now_and_stop path) or simply
// clear the in-fly slot (the immediate-transfer path of
// transfer_leadership).
func (r *Replicator) sendTimeoutNowLocked(g *latchGuard, stopAfter bool) {
	r.sendTimeoutNowWithTimeoutLocked(g, stopAfter, defaultTimeoutNowRPCTimeout)
}

func (r *Replicator) sendTimeoutNowWithTimeoutLocked(g *latchGuard, stopAfter bool, timeout time.Duration) {
	req := &TimeoutNowRequest{
		Term:     r.opts.Term,
		GroupID:  r.opts.GroupID,
		LeaderID: r.opts.LeaderID,
		PeerID:   r.opts.PeerID,
	}
	version := r.version
	r.timeoutNowInFly = r.opts.RPC.TimeoutNow(r.opts.Endpoint, req, timeout, func(resp *TimeoutNowResponse, err error) {
		r.onTimeoutNowComplete(version, req, resp, err, stopAfter)
	})
	g.Unlock()
}

// onTimeoutNowComplete handles a TimeoutNow RPC completion. Higher-term
// responses step down as elsewhere (spec.md §4.8); when stopAfter is
// set, the replicator is destroyed regardless of outcome.
func (r *Replicator) onTimeoutNowComplete(version uint64, req *TimeoutNowRequest, resp *TimeoutNowResponse, err error, stopAfter bool) {
	g, ok := r.latch.Lock()
	if !ok {
		return
	}
	if version != r.version {
		if stopAfter {
			r.destroyLocked(g, ErrStopped)
			return
		}
		g.Unlock()
		return
	}
	r.timeoutNowInFly = nil

	if err == nil && resp != nil && resp.Term > req.Term {
		r.stepDownOnHigherTermLocked(g, resp.Term)
		return
	}

	if stopAfter {
		r.destroyLocked(g, ErrStopped)
		return
	}
	g.Unlock()
}
