package raft

import "container/list"

// inflightRecord is an immutable record of an outstanding RPC, tagged with
// the sequence number assigned when it was sent. Heartbeats and
// TimeoutNow do not enter this queue; they're tracked by single-slot
// fields on the replicator instead.
type inflightRecord struct {
	seq         uint32
	kind        requestType
	startIndex  uint64
	count       int // 0 means probe or empty AppendEntries
	sizeBytes   int
	handle      RPCHandle
}

// inflightQueue is the FIFO record of outstanding RPCs described in
// spec.md §4.2. It is manipulated only while the owning replicator's
// latch is held.
type inflightQueue struct {
	l *list.List
}

func newInflightQueue() *inflightQueue {
	return &inflightQueue{l: list.New()}
}

func (q *inflightQueue) push(rec *inflightRecord) {
	q.l.PushBack(rec)
}

func (q *inflightQueue) front() (*inflightRecord, bool) {
	e := q.l.Front()
	if e == nil {
		return nil, false
	}
	return e.Value.(*inflightRecord), true
}

func (q *inflightQueue) popFront() (*inflightRecord, bool) {
	e := q.l.Front()
	if e == nil {
		return nil, false
	}
	q.l.Remove(e)
	return e.Value.(*inflightRecord), true
}

func (q *inflightQueue) back() (*inflightRecord, bool) {
	e := q.l.Back()
	if e == nil {
		return nil, false
	}
	return e.Value.(*inflightRecord), true
}

func (q *inflightQueue) len() int {
	return q.l.Len()
}

func (q *inflightQueue) reset() {
	q.l.Init()
}

// nextSendIndex implements the admission rules of spec.md §4.2. It
// returns (index, true) when sending may proceed, or (0, false) when the
// caller should stop pipelining.
func (q *inflightQueue) nextSendIndex(maxInflightMsgs int, fallback uint64) (uint64, bool) {
	if q.len() >= maxInflightMsgs {
		return 0, false
	}
	tail, ok := q.back()
	if !ok {
		return fallback, true
	}
	if tail.kind != requestAppendEntries || tail.count == 0 {
		// tail is a probe, a snapshot, or an empty append: wait for it.
		return 0, false
	}
	return tail.startIndex + uint64(tail.count), true
}

// nextSeq returns the sequence to assign to the next outgoing request,
// wrapping negative overflow to 0 per spec.md §3 (32-bit counters wrapped
// to non-negative on overflow; Go's uint32 wraps naturally to 0).
func nextSeq(cur uint32) uint32 {
	return cur + 1
}
