package raft

import (
	"fmt"
	"log"
	"os"
	"time"
)

// replicatorState is the Probe -> Replicate <-> Snapshot -> Destroyed
// state machine of spec.md §4.4.
type replicatorState int

const (
	stateProbe replicatorState = iota
	stateReplicate
	stateSnapshot
	stateDestroyed
)

func (s replicatorState) String() string {
	switch s {
	case stateProbe:
		return "Probe"
	case stateReplicate:
		return "Replicate"
	case stateSnapshot:
		return "Snapshot"
	case stateDestroyed:
		return "Destroyed"
	default:
		return "unknown"
	}
}

// logWarnEvery throttles repeated transport-failure warnings, mirroring
// spec.md §7's "log warn every 10th consecutive [failure]".
const logWarnEvery = 10

// Replicator drives a single follower's log up to date. One is
// constructed per remote peer by the owning leader; see Start.
type Replicator struct {
	id   ID
	opts *Options

	latch   *latch
	metrics *replicatorMetrics
	pool    *dispatchPool
	logger  *log.Logger

	// Everything below is mutated only while a *latchGuard for this
	// replicator is held.
	nextIndex         uint64
	state             replicatorState
	hasSucceeded      bool
	consecutiveErrors uint64
	lastRPCSendTS     time.Time
	version           uint64
	reqSeq            uint32
	requiredNextSeq   uint32
	timeoutNowIndex   uint64

	catchup        *catchUpClosure
	snapshotReader SnapshotReader

	inflights        *inflightQueue
	pendingResponses *reorderBuffer

	heartbeatTimer  TimerHandle
	blockTimer      TimerHandle
	heartbeatInFly  RPCHandle
	timeoutNowInFly RPCHandle
	waitID          uint64
	hasWaiter       bool
}

// Start creates a replicator for opts.PeerID, connects to it, sets up its
// metrics labels, arms the heartbeat timer, and emits an initial probe. It
// corresponds to spec.md §6's `start(opts) -> id | none`.
func Start(opts *Options) (ID, error) {
	if err := opts.Validate(); err != nil {
		return 0, err
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	if !opts.RPC.Connect(opts.Endpoint) {
		return 0, fmt.Errorf("raft: failed to connect to peer %s at %s", opts.PeerID, opts.Endpoint)
	}

	r := &Replicator{
		opts:             opts,
		metrics:          newReplicatorMetrics(opts.Metrics, opts.GroupID, opts.PeerID),
		pool:             newDispatchPool(0),
		logger:           opts.Logger,
		nextIndex:        maxUint64(opts.LogStore.LastIndex()+1, 1),
		state:            stateProbe,
		inflights:        newInflightQueue(),
		pendingResponses: newReorderBuffer(),
	}
	r.latch = newLatch(r.onError)

	id := defaultRegistry.register(r)

	g, ok := r.latch.Lock()
	if !ok {
		return 0, ErrDestroyed
	}
	r.armHeartbeatLocked()
	r.sendProbeLocked(g)
	return id, nil
}

// lookupReplicator resolves id via the default registry; external
// control-surface functions (WaitForCaughtUp, TransferLeadership, ...)
// are thin wrappers around this plus a Lock/Unlock pair.
func lookupReplicator(id ID) (*Replicator, bool) {
	return defaultRegistry.lookup(id)
}

func (r *Replicator) logf(level, format string, args ...interface{}) {
	r.logger.Printf("[%s] raft-replicator(%s/%s): %s", level, r.opts.GroupID, r.opts.PeerID, fmt.Sprintf(format, args...))
}

// resetInflights implements spec.md §4.2/§7: bump the version, drop all
// outstanding sequences, collapse reqSeq/requiredNextSeq, and release any
// snapshot reader. Must be called while holding the latch.
func (r *Replicator) resetInflights() {
	r.version++
	r.inflights.reset()
	r.pendingResponses.reset()
	merged := maxUint64(uint64(r.reqSeq), uint64(r.requiredNextSeq))
	r.reqSeq = uint32(merged)
	r.requiredNextSeq = uint32(merged)
	if r.snapshotReader != nil {
		r.snapshotReader.Release()
		r.snapshotReader = nil
	}
	r.metrics.setInflightsCount(0)
}

// block arms the block timer for a backoff period equal to the heartbeat
// timeout, per spec.md §4.6. On fire it re-enters via
// continueSendingAfterBlock and sends a probe.
func (r *Replicator) block() {
	if r.blockTimer != nil {
		r.blockTimer.Cancel()
	}
	id := r.id
	r.blockTimer = r.opts.Timers.Schedule(func() {
		r.continueSendingAfterBlock(id)
	}, r.opts.HeartbeatTimeout)
}

// continueSendingAfterBlock is the block timer's fire callback: re-enter
// under the latch and emit a probe.
func (r *Replicator) continueSendingAfterBlock(id ID) {
	rep, ok := lookupReplicator(id)
	if !ok {
		return
	}
	g, ok := rep.latch.Lock()
	if !ok {
		return
	}
	rep.blockTimer = nil
	rep.sendProbeLocked(g)
}

// unblockAndSendNow cancels any pending block timer and immediately
// re-probes. Exposed as UnblockAndSendNow on the control surface.
func (r *Replicator) unblockAndSendNow(g *latchGuard) {
	if r.blockTimer != nil {
		r.blockTimer.Cancel()
		r.blockTimer = nil
	}
	r.sendProbeLocked(g)
}

// UnblockAndSendNow is spec.md §6's `unblock_and_send_now(id)`.
func UnblockAndSendNow(id ID) {
	r, ok := lookupReplicator(id)
	if !ok {
		return
	}
	g, ok := r.latch.Lock()
	if !ok {
		return
	}
	r.unblockAndSendNow(g)
}

// sendProbeLocked emits a genuine zero-entry AppendEntries at prevLogIndex
// = nextIndex - 1, the probe RPC spec.md §3 and §4.4 describe ("count = 0
// means probe or heartbeat"; "It sends zero-entry AppendEntries (a
// probe)"). Unlike the entry pump, it never attaches real log entries,
// even when some are available at nextIndex: the point of a probe is to
// confirm the match point before committing to a pipelined window. It
// releases g before returning, and sends nothing while any record is still
// in the inflight queue.
func (r *Replicator) sendProbeLocked(g *latchGuard) {
	if r.inflights.len() > 0 {
		g.Unlock()
		return
	}

	prevLogIndex := r.nextIndex - 1
	prevLogTerm := r.opts.LogStore.TermOf(prevLogIndex)
	if prevLogTerm == 0 && prevLogIndex != 0 {
		// Compacted: fall back to snapshot installation.
		r.beginSnapshotLocked(g)
		return
	}

	req := &AppendEntriesRequest{
		Term:           r.opts.Term,
		GroupID:        r.opts.GroupID,
		LeaderID:       r.opts.LeaderID,
		PeerID:         r.opts.PeerID,
		PrevLogIndex:   prevLogIndex,
		PrevLogTerm:    prevLogTerm,
		CommittedIndex: r.opts.Ballot.LastCommittedIndex(),
		Entries:        nil,
	}
	r.emitAppendEntriesLocked(req, r.nextIndex, 0, 0)
	g.Unlock()
}

// sendEntriesLocked is the entry pump of spec.md §4.5. It is only ever
// entered in the Replicate state, once a probe has confirmed the match
// point; it loops emitting pipelined batches up to MaxInflightMsgs until
// next_send_index stops advancing, then releases g.
func (r *Replicator) sendEntriesLocked(g *latchGuard) {
	for {
		startIndex, ok := r.inflights.nextSendIndex(r.opts.MaxInflightMsgs, r.nextIndex)
		if !ok {
			g.Unlock()
			return
		}

		prevLogIndex := startIndex - 1
		prevLogTerm := r.opts.LogStore.TermOf(prevLogIndex)
		if prevLogTerm == 0 && prevLogIndex != 0 {
			// Compacted: fall back to snapshot installation.
			r.beginSnapshotLocked(g)
			return
		}

		entries, bytes := r.batchEntriesLocked(startIndex)
		if len(entries) == 0 {
			if startIndex < r.opts.LogStore.FirstIndex() {
				r.beginSnapshotLocked(g)
				return
			}
			r.registerLogWaiterLocked(startIndex - 1)
			g.Unlock()
			return
		}

		req := &AppendEntriesRequest{
			Term:           r.opts.Term,
			GroupID:        r.opts.GroupID,
			LeaderID:       r.opts.LeaderID,
			PeerID:         r.opts.PeerID,
			PrevLogIndex:   prevLogIndex,
			PrevLogTerm:    prevLogTerm,
			CommittedIndex: r.opts.Ballot.LastCommittedIndex(),
			Entries:        entries,
		}
		r.emitAppendEntriesLocked(req, startIndex, len(entries), bytes)
	}
}

// batchEntriesLocked fills up to MaxEntriesPerBatch entries starting at
// startIndex, stopping early at MaxBodyBytes or on the first missing
// entry, per spec.md §4.5 step 3.
func (r *Replicator) batchEntriesLocked(startIndex uint64) ([]*LogEntry, int) {
	entries := make([]*LogEntry, 0, r.opts.MaxEntriesPerBatch)
	total := 0
	for i := 0; i < r.opts.MaxEntriesPerBatch; i++ {
		idx := startIndex + uint64(i)
		e, ok := r.opts.LogStore.GetEntry(idx)
		if !ok {
			break
		}
		sz := e.size()
		if total+sz > r.opts.MaxBodyBytes && len(entries) > 0 {
			break
		}
		entries = append(entries, e)
		total += sz
	}
	return entries, total
}

// registerLogWaiterLocked installs a one-shot log-store waiter, per
// spec.md §4.5 step 4. At most one waiter is outstanding at a time
// (spec.md §8.6).
func (r *Replicator) registerLogWaiterLocked(afterIndex uint64) {
	if r.hasWaiter {
		r.opts.LogStore.RemoveWaiter(r.waitID)
	}
	id := r.id
	r.waitID = r.opts.LogStore.Wait(afterIndex, func(arg interface{}) {
		r.continueSending(id)
	}, nil)
	r.hasWaiter = true
}

// continueSending is the log-store waiter's fire callback.
func (r *Replicator) continueSending(id ID) {
	rep, ok := lookupReplicator(id)
	if !ok {
		return
	}
	g, ok := rep.latch.Lock()
	if !ok {
		return
	}
	rep.hasWaiter = false
	rep.sendEntriesLocked(g)
}

// emitAppendEntriesLocked assigns the next sequence number, appends the
// Inflight record, and submits the RPC. req_seq assignment and the
// inflights append happen atomically with submission because the latch
// is held throughout, per spec.md §4.5's correctness note.
func (r *Replicator) emitAppendEntriesLocked(req *AppendEntriesRequest, startIndex uint64, count, bytes int) {
	seq := r.reqSeq
	r.reqSeq = nextSeq(r.reqSeq)
	version := r.version
	sendTS := time.Now()

	handle := r.opts.RPC.AppendEntries(r.opts.Endpoint, req, 0, func(resp *AppendEntriesResponse, err error) {
		r.onAppendEntriesComplete(seq, version, req, resp, err, sendTS)
	})

	r.inflights.push(&inflightRecord{
		seq:        seq,
		kind:       requestAppendEntries,
		startIndex: startIndex,
		count:      count,
		sizeBytes:  bytes,
		handle:     handle,
	})
	r.metrics.setInflightsCount(r.inflights.len())
	r.metrics.recordBatch(count, bytes)
}

// onAppendEntriesComplete is the RPC completion callback; it fires on a
// transport goroutine, acquires the latch, and hands off to the reorder
// buffer.
func (r *Replicator) onAppendEntriesComplete(seq uint32, version uint64, req *AppendEntriesRequest, resp *AppendEntriesResponse, err error, sendTS time.Time) {
	g, ok := r.latch.Lock()
	if !ok {
		return
	}
	if version != r.version {
		// Stale delivery from a prior epoch: drop silently (spec.md §4.3).
		g.Unlock()
		return
	}
	rr := &rpcResponse{
		seq:        seq,
		kind:       requestAppendEntries,
		version:    version,
		sendTS:     sendTS,
		appendReq:  req,
		appendResp: resp,
		transportErr: err,
	}
	if resp != nil {
		rr.success = resp.Success
		rr.term = resp.Term
		rr.higherTerm = resp.Term > req.Term
	}
	r.handleResponseLocked(g, rr)
}

// handleResponseLocked implements the reorder-buffer admission and drain
// of spec.md §4.3.
func (r *Replicator) handleResponseLocked(g *latchGuard, rr *rpcResponse) {
	r.pendingResponses.push(rr)

	if r.pendingResponses.size() > r.opts.MaxInflightMsgs {
		r.logf("WARN", "pending response backlog exceeded MaxInflightMsgs, resetting")
		r.resetInflights()
		r.state = stateProbe
		r.sendProbeLocked(g)
		return
	}

	for {
		min, ok := r.pendingResponses.peekMin()
		if !ok || min.seq != r.requiredNextSeq {
			break
		}
		min, _ = r.pendingResponses.popMin()

		inflight, ok := r.inflights.popFront()
		if !ok || inflight.seq != min.seq {
			r.logf("ERROR", "protocol invariant violation: reorder drain found seq %d, inflight head missing or mismatched", min.seq)
			r.resetInflights()
			r.state = stateProbe
			r.block()
			g.Unlock()
			return
		}

		r.requiredNextSeq++

		stop := r.applyResponseLocked(g, min, inflight)
		if stop {
			return
		}
	}

	r.sendEntriesLocked(g)
}

// applyResponseLocked applies one in-order response's effects to state
// and returns true if the caller already released g (e.g. on
// destruction) and must not continue the drain loop.
func (r *Replicator) applyResponseLocked(g *latchGuard, rr *rpcResponse, inflight *inflightRecord) bool {
	if rr.transportErr != nil {
		r.consecutiveErrors++
		if r.consecutiveErrors%logWarnEvery == 0 {
			r.logf("WARN", "transport failure to %s (x%d): %v", r.opts.PeerID, r.consecutiveErrors, rr.transportErr)
		}
		r.resetInflights()
		r.state = stateProbe
		r.block()
		g.Unlock()
		return true
	}

	if rr.higherTerm {
		r.stepDownOnHigherTermLocked(g, rr.term)
		return true
	}

	req := rr.appendReq
	resp := rr.appendResp

	if !resp.Success {
		r.handleMismatchLocked(resp)
		r.resetInflights()
		r.state = stateProbe
		r.sendProbeLocked(g)
		return true
	}

	if inflight.startIndex != req.PrevLogIndex+1 {
		r.logf("ERROR", "protocol invariant violation: inflight start %d != prevLogIndex+1 %d", inflight.startIndex, req.PrevLogIndex+1)
		r.resetInflights()
		r.state = stateProbe
		r.sendProbeLocked(g)
		return true
	}

	r.consecutiveErrors = 0
	r.lastRPCSendTS = rr.sendTS
	r.metrics.incrAppendEntries()
	r.metrics.measureReplicateEntries(rr.sendTS)

	if inflight.count > 0 {
		r.opts.Ballot.CommitAt(r.nextIndex, r.nextIndex+uint64(inflight.count)-1, r.opts.PeerID)
		r.nextIndex += uint64(inflight.count)
	} else {
		// inflight.count == 0 means this was a probe (spec.md §3's
		// Inflight invariant): the match point is confirmed, so move to
		// steady-state pipelined replication unconditionally, regardless
		// of whatever state we were previously in.
		r.state = stateReplicate
	}

	r.hasSucceeded = true
	r.recordProgressMetricsLocked()
	r.notifyCatchUpLocked()
	r.maybeSendTimeoutNowLocked(g)

	return false
}

// recordProgressMetricsLocked reports next_index and the derived log lag
// (spec.md §6: log-lags = log.last_index - (next_index - 1)) every time
// next_index advances, whether by ordinary replication or by snapshot
// installation.
func (r *Replicator) recordProgressMetricsLocked() {
	r.metrics.setNextIndex(float32(r.nextIndex))

	lastIndex := r.opts.LogStore.LastIndex()
	var lag float32
	if lastIndex+1 > r.nextIndex {
		lag = float32(lastIndex + 1 - r.nextIndex)
	}
	r.metrics.setLogLag(lag)
}

// handleMismatchLocked implements spec.md §4.4's mismatch recovery logic,
// including the open-question behavior at next_index == 1 (spec.md §9):
// remain at index 1, keep probing, and surface a metric.
func (r *Replicator) handleMismatchLocked(resp *AppendEntriesResponse) {
	if resp.LastLogIndex+1 < r.nextIndex {
		r.nextIndex = resp.LastLogIndex + 1
		if r.nextIndex == 0 {
			r.nextIndex = 1
		}
		return
	}
	if r.nextIndex <= 1 {
		r.logf("ERROR", "mismatch at next_index==1; staying at floor and re-probing")
		r.metrics.incrMismatchFloor()
		return
	}
	r.nextIndex--
}

// stepDownOnHigherTermLocked implements spec.md §4.4's higher-term
// handling: notify catch-up with EPERM, destroy, then step down.
func (r *Replicator) stepDownOnHigherTermLocked(g *latchGuard, newTerm uint64) {
	r.logf("ERROR", "peer %s reports higher term %d, stepping down", r.opts.PeerID, newTerm)
	r.destroyLocked(g, ErrHigherTerm)
	if r.opts.StepDown != nil {
		r.pool.dispatch(func() { r.opts.StepDown(newTerm) })
	}
}

// beginSnapshotLocked switches to the Snapshot state and issues an
// InstallSnapshot RPC, per spec.md §4.4 ("Probe ... On 'log compacted' it
// transitions to Snapshot") and §4.5 step 2/4.
func (r *Replicator) beginSnapshotLocked(g *latchGuard) {
	reader, ok := r.opts.Snapshots.Open()
	if !ok {
		r.logf("ERROR", "%v for %s; remaining in %s", ErrSnapshotUnavailable, r.opts.PeerID, r.state)
		g.Unlock()
		return
	}
	meta, ok := reader.Load()
	if !ok {
		reader.Release()
		r.logf("ERROR", "failed to load snapshot metadata for %s", r.opts.PeerID)
		g.Unlock()
		return
	}
	uri, ok := reader.GenerateURIForCopy()
	if !ok {
		reader.Release()
		r.logf("ERROR", "failed to generate snapshot URI for %s", r.opts.PeerID)
		g.Unlock()
		return
	}

	r.snapshotReader = reader
	r.state = stateSnapshot

	req := &InstallSnapshotRequest{
		Term:     r.opts.Term,
		GroupID:  r.opts.GroupID,
		LeaderID: r.opts.LeaderID,
		PeerID:   r.opts.PeerID,
		Meta:     *meta,
		URI:      uri,
	}

	seq := r.reqSeq
	r.reqSeq = nextSeq(r.reqSeq)
	version := r.version
	sendTS := time.Now()

	handle := r.opts.RPC.InstallSnapshot(r.opts.Endpoint, req, func(resp *InstallSnapshotResponse, err error) {
		r.onInstallSnapshotComplete(seq, version, req, resp, err, sendTS)
	})

	r.inflights.push(&inflightRecord{
		seq:        seq,
		kind:       requestInstallSnapshot,
		startIndex: meta.LastIncludedIndex + 1,
		count:      0,
		handle:     handle,
	})
	r.metrics.setInflightsCount(r.inflights.len())
	g.Unlock()
}

func (r *Replicator) onInstallSnapshotComplete(seq uint32, version uint64, req *InstallSnapshotRequest, resp *InstallSnapshotResponse, err error, sendTS time.Time) {
	g, ok := r.latch.Lock()
	if !ok {
		return
	}
	if version != r.version {
		g.Unlock()
		return
	}

	rr := &rpcResponse{
		seq:          seq,
		kind:         requestInstallSnapshot,
		version:      version,
		sendTS:       sendTS,
		snapshotMeta: req.Meta,
		snapshotResp: resp,
		transportErr: err,
	}
	if resp != nil {
		rr.success = resp.Success
		rr.term = resp.Term
		rr.higherTerm = resp.Term > req.Term
	}

	r.pendingResponses.push(rr)
	for {
		min, ok := r.pendingResponses.peekMin()
		if !ok || min.seq != r.requiredNextSeq {
			break
		}
		min, _ = r.pendingResponses.popMin()
		inflight, ok := r.inflights.popFront()
		if !ok || inflight.seq != min.seq {
			r.logf("ERROR", "protocol invariant violation on snapshot drain")
			r.resetInflights()
			r.state = stateProbe
			r.block()
			g.Unlock()
			return
		}
		r.requiredNextSeq++
		if r.applySnapshotResponseLocked(g, min) {
			return
		}
	}
	g.Unlock()
}

// applySnapshotResponseLocked implements spec.md §4.4's Snapshot-state
// transitions.
func (r *Replicator) applySnapshotResponseLocked(g *latchGuard, rr *rpcResponse) bool {
	if r.snapshotReader != nil {
		r.snapshotReader.Release()
		r.snapshotReader = nil
	}

	if rr.transportErr != nil {
		r.consecutiveErrors++
		r.resetInflights()
		r.state = stateProbe
		r.block()
		g.Unlock()
		return true
	}

	if rr.higherTerm {
		r.stepDownOnHigherTermLocked(g, rr.term)
		return true
	}

	r.metrics.incrInstallSnapshot()

	if !rr.snapshotResp.Success {
		r.logf("WARN", "InstallSnapshot to %s rejected", r.opts.PeerID)
		r.resetInflights()
		r.state = stateProbe
		r.block()
		g.Unlock()
		return true
	}

	r.nextIndex = rr.snapshotMeta.LastIncludedIndex + 1
	r.state = stateReplicate
	r.consecutiveErrors = 0
	r.lastRPCSendTS = rr.sendTS
	r.hasSucceeded = true
	r.recordProgressMetricsLocked()
	r.notifyCatchUpLocked()
	r.maybeSendTimeoutNowLocked(g)
	r.sendEntriesLocked(g)
	return true
}

// notifyCatchUpLocked releases the catch-up closure, if any, once the
// peer has closed to within its registered margin (spec.md §4.7).
func (r *Replicator) notifyCatchUpLocked() {
	if r.catchup == nil {
		return
	}
	lastIndex := r.opts.LogStore.LastIndex()
	if !caughtUp(r.nextIndex, r.catchup.maxMargin, lastIndex) {
		return
	}
	c := r.catchup
	r.catchup = nil
	c.errorWasSet = true
	r.pool.dispatch(func() { c.fire(nil) })
}

// onError is the latch's error callback (spec.md §4.1, §5, §7). It runs
// synchronously inside SetError, while g is already held; it must either
// release g or hand it to something that will (destroyLocked).
func (r *Replicator) onError(g *latchGuard, code errorCode) {
	switch code {
	case errCodeStopped:
		r.destroyLocked(g, ErrStopped)
	case errCodeTimedOut:
		g.Unlock()
		r.sendHeartbeatAsync(nil)
	default:
		panic(fmt.Sprintf("raft: unknown latch error code %d", code))
	}
}

// destroyLocked implements spec.md §4.4's Destroyed state: cancel every
// outstanding RPC and timer, remove the log-store waiter, notify any
// catch-up closure, release the snapshot reader, and destroy the latch.
// Metrics are not unregistered: the per-peer series stay in the sink. g is
// consumed (UnlockAndDestroy'd) by this call.
func (r *Replicator) destroyLocked(g *latchGuard, notifyErr error) {
	if r.state == stateDestroyed {
		g.Unlock()
		return
	}
	r.state = stateDestroyed

	r.inflightsCancelLocked()

	if r.heartbeatTimer != nil {
		r.heartbeatTimer.Cancel()
		r.heartbeatTimer = nil
	}
	if r.blockTimer != nil {
		r.blockTimer.Cancel()
		r.blockTimer = nil
	}
	if r.heartbeatInFly != nil {
		r.heartbeatInFly.Cancel()
		r.heartbeatInFly = nil
	}
	if r.timeoutNowInFly != nil {
		r.timeoutNowInFly.Cancel()
		r.timeoutNowInFly = nil
	}
	if r.hasWaiter {
		r.opts.LogStore.RemoveWaiter(r.waitID)
		r.hasWaiter = false
	}
	if r.snapshotReader != nil {
		r.snapshotReader.Release()
		r.snapshotReader = nil
	}
	if r.catchup != nil {
		c := r.catchup
		r.catchup = nil
		c.errorWasSet = true
		r.pool.dispatch(func() { c.fire(notifyErr) })
	}

	id := r.id
	g.UnlockAndDestroy()
	defaultRegistry.forget(id)
}

func (r *Replicator) inflightsCancelLocked() {
	for {
		rec, ok := r.inflights.popFront()
		if !ok {
			break
		}
		if rec.handle != nil {
			rec.handle.Cancel()
		}
	}
	r.pendingResponses.reset()
}

// Stop delivers ESTOP through the latch, cancelling everything and
// destroying the replicator. Corresponds to spec.md §6's `stop(id)`.
func Stop(id ID) {
	r, ok := lookupReplicator(id)
	if !ok {
		return
	}
	g, ok := r.latch.Lock()
	if !ok {
		return
	}
	g.SetError(errCodeStopped)
}

// Join blocks until the replicator identified by id has been destroyed.
// Corresponds to spec.md §6's `join(id)`.
func Join(id ID) {
	r, ok := lookupReplicator(id)
	if !ok {
		return
	}
	r.latch.Join()
}

// GetNextIndex returns the replicator's current next_index.
func GetNextIndex(id ID) (uint64, bool) {
	r, ok := lookupReplicator(id)
	if !ok {
		return 0, false
	}
	g, ok := r.latch.Lock()
	if !ok {
		return 0, false
	}
	defer g.Unlock()
	return r.nextIndex, true
}

// GetLastRPCSendTS returns the monotonic time of the replicator's latest
// successful RPC.
func GetLastRPCSendTS(id ID) (time.Time, bool) {
	r, ok := lookupReplicator(id)
	if !ok {
		return time.Time{}, false
	}
	g, ok := r.latch.Lock()
	if !ok {
		return time.Time{}, false
	}
	defer g.Unlock()
	return r.lastRPCSendTS, true
}

// WaitForCaughtUp is spec.md §6's `wait_for_caught_up(id, margin,
// due_time, closure)`.
func WaitForCaughtUp(id ID, maxMargin uint64, dueTime time.Duration, closure func(err error)) error {
	r, ok := lookupReplicator(id)
	if !ok {
		return ErrDestroyed
	}
	g, ok := r.latch.Lock()
	if !ok {
		return ErrDestroyed
	}
	defer g.Unlock()

	if r.catchup != nil {
		return ErrAlreadyWaiting
	}

	c := &catchUpClosure{maxMargin: maxMargin, cb: closure}
	r.catchup = c

	if dueTime > 0 {
		repID := r.id
		c.timer = r.opts.Timers.Schedule(func() {
			r.onCatchUpTimedOut(repID, c)
		}, dueTime)
	}

	lastIndex := r.opts.LogStore.LastIndex()
	if caughtUp(r.nextIndex, maxMargin, lastIndex) {
		r.catchup = nil
		c.errorWasSet = true
		r.pool.dispatch(func() { c.fire(nil) })
	}
	return nil
}

// onCatchUpTimedOut fires when a catch-up closure's due_time elapses
// first. It races with notifyCatchUpLocked/destroyLocked via
// catchUpClosure's internal fired flag (spec.md §4.7).
func (r *Replicator) onCatchUpTimedOut(id ID, c *catchUpClosure) {
	rep, ok := lookupReplicator(id)
	if ok {
		g, ok := rep.latch.Lock()
		if ok {
			if rep.catchup == c {
				rep.catchup = nil
			}
			g.Unlock()
		}
	}
	c.fire(ErrCatchUpTimedOut)
}
