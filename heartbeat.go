package raft

import "time"

// armHeartbeatLocked arms the heartbeat timer for now + HeartbeatTimeout,
// scheduling set_error(ETIMEDOUT) on the latch, per spec.md §4.6. Must be
// called while the latch is held; does not release it.
func (r *Replicator) armHeartbeatLocked() {
	if r.heartbeatTimer != nil {
		r.heartbeatTimer.Cancel()
	}
	id := r.id
	r.heartbeatTimer = r.opts.Timers.Schedule(func() {
		r.fireHeartbeatTimeout(id)
	}, r.opts.HeartbeatTimeout)
}

// fireHeartbeatTimeout is the heartbeat timer's fire callback: re-enter
// under the latch and deliver ETIMEDOUT, which onError routes to an
// async heartbeat dispatch (spec.md §4.6).
func (r *Replicator) fireHeartbeatTimeout(id ID) {
	rep, ok := lookupReplicator(id)
	if !ok {
		return
	}
	g, ok := rep.latch.Lock()
	if !ok {
		return
	}
	rep.heartbeatTimer = nil
	rep.logf("WARN", "%v for %s", ErrTimedOut, rep.opts.PeerID)
	g.SetError(errCodeTimedOut)
}

// sendHeartbeatAsync issues a zero-entry AppendEntries heartbeat with an
// election-timeout/2 deadline (spec.md §4.6, §5) and rearms the
// heartbeat timer on completion, success or failure. It does not hold
// the latch across the RPC.
func (r *Replicator) sendHeartbeatAsync(done func()) {
	g, ok := r.latch.Lock()
	if !ok {
		return
	}
	if r.heartbeatInFly != nil {
		g.Unlock()
		return
	}

	req := &AppendEntriesRequest{
		Term:     r.opts.Term,
		GroupID:  r.opts.GroupID,
		LeaderID: r.opts.LeaderID,
		PeerID:   r.opts.PeerID,
	}
	version := r.version
	deadline := r.opts.ElectionTimeout / 2

	r.heartbeatInFly = r.opts.RPC.AppendEntries(r.opts.Endpoint, req, deadline, func(resp *AppendEntriesResponse, err error) {
		r.onHeartbeatComplete(version, req, resp, err, done)
	})
	g.Unlock()
}

func (r *Replicator) onHeartbeatComplete(version uint64, req *AppendEntriesRequest, resp *AppendEntriesResponse, err error, done func()) {
	g, ok := r.latch.Lock()
	if !ok {
		if done != nil {
			done()
		}
		return
	}
	if version != r.version {
		r.heartbeatInFly = nil
		r.armHeartbeatLocked()
		g.Unlock()
		if done != nil {
			done()
		}
		return
	}
	r.heartbeatInFly = nil
	r.metrics.incrHeartbeat()

	if err != nil {
		r.consecutiveErrors++
		r.armHeartbeatLocked()
		g.Unlock()
		if done != nil {
			done()
		}
		return
	}

	if resp.Term > req.Term {
		r.stepDownOnHigherTermLocked(g, resp.Term)
		if done != nil {
			done()
		}
		return
	}

	r.setLastContactLocked()
	r.armHeartbeatLocked()
	g.Unlock()
	if done != nil {
		done()
	}
}

func (r *Replicator) setLastContactLocked() {
	r.lastRPCSendTS = time.Now()
}

// SendHeartbeat is spec.md §6's `send_heartbeat(id [, closure])`: force
// an out-of-band heartbeat, invoking closure (if non-nil) on completion.
func SendHeartbeat(id ID, closure func()) {
	r, ok := lookupReplicator(id)
	if !ok {
		if closure != nil {
			closure()
		}
		return
	}
	r.sendHeartbeatAsync(closure)
}
