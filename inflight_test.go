package raft

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInflightQueueFIFO(t *testing.T) {
	q := newInflightQueue()
	assert.Equal(t, 0, q.len())

	q.push(&inflightRecord{seq: 0, kind: requestAppendEntries, startIndex: 10, count: 4})
	q.push(&inflightRecord{seq: 1, kind: requestAppendEntries, startIndex: 14, count: 4})
	require.Equal(t, 2, q.len())

	front, ok := q.front()
	require.True(t, ok)
	assert.Equal(t, uint32(0), front.seq)

	back, ok := q.back()
	require.True(t, ok)
	assert.Equal(t, uint32(1), back.seq)

	popped, ok := q.popFront()
	require.True(t, ok)
	assert.Equal(t, uint32(0), popped.seq)
	assert.Equal(t, 1, q.len())

	q.reset()
	assert.Equal(t, 0, q.len())
	_, ok = q.front()
	assert.False(t, ok)
}

// TestInflightNextSendIndexS1 traces spec.md §8 scenario S1: next_index=10,
// last_index=30, max_entries=4, max_inflight=3. Pipelining three batches of
// four must fill the inflight window exactly and then stop admitting a
// fourth until one drains.
func TestInflightNextSendIndexS1(t *testing.T) {
	q := newInflightQueue()
	const maxInflight = 3

	idx, ok := q.nextSendIndex(maxInflight, 10)
	require.True(t, ok)
	assert.Equal(t, uint64(10), idx)
	q.push(&inflightRecord{seq: 0, kind: requestAppendEntries, startIndex: 10, count: 4})

	idx, ok = q.nextSendIndex(maxInflight, 10)
	require.True(t, ok)
	assert.Equal(t, uint64(14), idx)
	q.push(&inflightRecord{seq: 1, kind: requestAppendEntries, startIndex: 14, count: 4})

	idx, ok = q.nextSendIndex(maxInflight, 10)
	require.True(t, ok)
	assert.Equal(t, uint64(18), idx)
	q.push(&inflightRecord{seq: 2, kind: requestAppendEntries, startIndex: 18, count: 4})

	// The window is now exactly full at max_inflight=3: no further batch
	// may be admitted until one drains.
	_, ok = q.nextSendIndex(maxInflight, 10)
	assert.False(t, ok, "queue at exactly max_inflight must stop admitting new sends")

	// Draining the head re-opens one admission slot.
	_, ok = q.popFront()
	require.True(t, ok)
	idx, ok = q.nextSendIndex(maxInflight, 10)
	require.True(t, ok)
	assert.Equal(t, uint64(22), idx)
}

func TestInflightNextSendIndexWaitsOnProbeOrSnapshotTail(t *testing.T) {
	q := newInflightQueue()
	q.push(&inflightRecord{seq: 0, kind: requestAppendEntries, startIndex: 10, count: 0})
	_, ok := q.nextSendIndex(3, 10)
	assert.False(t, ok, "a zero-entry probe still in flight must block further sends")

	q2 := newInflightQueue()
	q2.push(&inflightRecord{seq: 0, kind: requestInstallSnapshot, startIndex: 1})
	_, ok = q2.nextSendIndex(3, 10)
	assert.False(t, ok, "an in-flight snapshot install must block further sends")
}

func TestNextSeqWraps(t *testing.T) {
	assert.Equal(t, uint32(1), nextSeq(0))
	assert.Equal(t, uint32(0), nextSeq(^uint32(0)))
}
