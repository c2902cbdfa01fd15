package raft

import (
	"container/heap"
	"time"
)

// rpcResponse is an immutable record of an arrived RPC completion, ordered
// by seq ascending per spec.md §3.
type rpcResponse struct {
	seq      uint32
	kind     requestType
	version  uint64
	sendTS   time.Time
	success  bool
	higherTerm bool
	term     uint64

	// append-entries specific
	appendReq  *AppendEntriesRequest
	appendResp *AppendEntriesResponse

	// install-snapshot specific
	snapshotMeta SnapshotMeta
	snapshotResp *InstallSnapshotResponse

	transportErr error
}

// responseHeap is a small binary min-heap keyed by seq. Sequences are
// monotonic per version epoch (spec.md §9), so wraparound never needs
// special-casing here; the comparator is plain integer comparison.
type responseHeap []*rpcResponse

func (h responseHeap) Len() int            { return len(h) }
func (h responseHeap) Less(i, j int) bool  { return h[i].seq < h[j].seq }
func (h responseHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *responseHeap) Push(x interface{}) { *h = append(*h, x.(*rpcResponse)) }
func (h *responseHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// reorderBuffer wraps responseHeap with the heap.Interface plumbing so
// callers only ever see push/peek/pop.
type reorderBuffer struct {
	h responseHeap
}

func newReorderBuffer() *reorderBuffer {
	b := &reorderBuffer{}
	heap.Init(&b.h)
	return b
}

func (b *reorderBuffer) push(r *rpcResponse) {
	heap.Push(&b.h, r)
}

func (b *reorderBuffer) peekMin() (*rpcResponse, bool) {
	if len(b.h) == 0 {
		return nil, false
	}
	return b.h[0], true
}

func (b *reorderBuffer) popMin() (*rpcResponse, bool) {
	if len(b.h) == 0 {
		return nil, false
	}
	return heap.Pop(&b.h).(*rpcResponse), true
}

func (b *reorderBuffer) size() int {
	return len(b.h)
}

func (b *reorderBuffer) reset() {
	b.h = b.h[:0]
}
