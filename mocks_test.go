package raft

import (
	"sync"
	"time"

	"github.com/armon/go-metrics"
)

// mockLogStore is an in-memory LogStore sufficient for the scenarios in
// spec.md §8 — grounded on sidecus-raft's logmgr_test.go style of a tiny
// hand-rolled fake rather than a generated mock.
type mockLogStore struct {
	mu         sync.Mutex
	entries    map[uint64]*LogEntry
	first      uint64
	last       uint64
	waiters    map[uint64]func(interface{})
	nextWaitID uint64
}

func newMockLogStore(first, last uint64) *mockLogStore {
	m := &mockLogStore{
		entries: make(map[uint64]*LogEntry),
		first:   first,
		last:    last,
		waiters: make(map[uint64]func(interface{})),
	}
	for i := first; i <= last; i++ {
		m.entries[i] = &LogEntry{Index: i, Term: 1, Type: EntryNormal, Data: []byte("x")}
	}
	return m
}

func (m *mockLogStore) LastIndex() uint64  { m.mu.Lock(); defer m.mu.Unlock(); return m.last }
func (m *mockLogStore) FirstIndex() uint64 { m.mu.Lock(); defer m.mu.Unlock(); return m.first }

func (m *mockLogStore) TermOf(index uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index == 0 {
		return 0
	}
	if e, ok := m.entries[index]; ok {
		return e.Term
	}
	return 0
}

func (m *mockLogStore) GetEntry(index uint64) (*LogEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[index]
	return e, ok
}

func (m *mockLogStore) Wait(index uint64, cb func(arg interface{}), arg interface{}) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextWaitID++
	id := m.nextWaitID
	m.waiters[id] = cb
	return id
}

func (m *mockLogStore) RemoveWaiter(waitID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.waiters, waitID)
}

// mockBallotBox records CommitAt calls for assertions.
type mockBallotBox struct {
	mu      sync.Mutex
	commits [][2]uint64
}

func (b *mockBallotBox) LastCommittedIndex() uint64 { return 0 }
func (b *mockBallotBox) CommitAt(start, end uint64, peerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commits = append(b.commits, [2]uint64{start, end})
}

// mockSnapshotReader implements SnapshotReader for tests.
type mockSnapshotReader struct {
	meta     SnapshotMeta
	uri      string
	released bool
}

func (r *mockSnapshotReader) Load() (*SnapshotMeta, bool)        { return &r.meta, true }
func (r *mockSnapshotReader) GenerateURIForCopy() (string, bool) { return r.uri, true }
func (r *mockSnapshotReader) Path() string                       { return r.uri }
func (r *mockSnapshotReader) Release()                           { r.released = true }

// mockSnapshotStorage always offers a single canned snapshot.
type mockSnapshotStorage struct {
	reader *mockSnapshotReader
	absent bool
}

func (s *mockSnapshotStorage) Open() (SnapshotReader, bool) {
	if s.absent {
		return nil, false
	}
	return s.reader, true
}

// mockHandle is a no-op RPCHandle/TimerHandle.
type mockHandle struct{ canceled bool }

func (h *mockHandle) Cancel() { h.canceled = true }

// pendingAppend/pendingSnap/pendingTTN capture an outgoing RPC and its
// callback without invoking it. The production code always calls the RPC
// service while holding the replicator's latch and expects the callback to
// run later, on a different goroutine, exactly like a real network
// round-trip; firing it inline would re-enter the still-held latch and
// deadlock. Tests complete these explicitly, in whatever order the
// scenario calls for (see completeAppend / completeAppendInOrder), the way
// a controllable transport fake would.
type pendingAppend struct {
	req *AppendEntriesRequest
	cb  func(*AppendEntriesResponse, error)
}

type pendingSnap struct {
	req *InstallSnapshotRequest
	cb  func(*InstallSnapshotResponse, error)
}

type pendingTTN struct {
	req *TimeoutNowRequest
	cb  func(*TimeoutNowResponse, error)
}

// mockRPCService records every request sent and lets tests complete them
// on demand, the way peermanager_test.go's PeerProxyMock records calls via
// channels instead of answering synchronously.
type mockRPCService struct {
	mu sync.Mutex

	appendSent []pendingAppend
	snapSent   []pendingSnap
	ttnSent    []pendingTTN

	connected bool
}

func (m *mockRPCService) Connect(endpoint string) bool {
	m.connected = true
	return true
}

func (m *mockRPCService) AppendEntries(endpoint string, req *AppendEntriesRequest, timeout time.Duration, cb func(*AppendEntriesResponse, error)) RPCHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendSent = append(m.appendSent, pendingAppend{req: req, cb: cb})
	return &mockHandle{}
}

func (m *mockRPCService) InstallSnapshot(endpoint string, req *InstallSnapshotRequest, cb func(*InstallSnapshotResponse, error)) RPCHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapSent = append(m.snapSent, pendingSnap{req: req, cb: cb})
	return &mockHandle{}
}

func (m *mockRPCService) TimeoutNow(endpoint string, req *TimeoutNowRequest, timeout time.Duration, cb func(*TimeoutNowResponse, error)) RPCHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ttnSent = append(m.ttnSent, pendingTTN{req: req, cb: cb})
	return &mockHandle{}
}

// appendCount reports how many AppendEntries calls have been recorded.
func (m *mockRPCService) appendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.appendSent)
}

// completeAppend fires the i'th recorded AppendEntries call's callback.
// Safe to call out of order, which is how S2 (out-of-order arrival) is
// exercised.
func (m *mockRPCService) completeAppend(i int, resp *AppendEntriesResponse, err error) {
	m.mu.Lock()
	p := m.appendSent[i]
	m.mu.Unlock()
	p.cb(resp, err)
}

func (m *mockRPCService) completeSnap(i int, resp *InstallSnapshotResponse, err error) {
	m.mu.Lock()
	p := m.snapSent[i]
	m.mu.Unlock()
	p.cb(resp, err)
}

func (m *mockRPCService) completeTTN(i int, resp *TimeoutNowResponse, err error) {
	m.mu.Lock()
	p := m.ttnSent[i]
	m.mu.Unlock()
	p.cb(resp, err)
}

// mockTimerManager captures scheduled tasks without ever firing them
// automatically; tests fire them explicitly to keep the scenarios
// deterministic, the way sidecus-raft's node_test.go drives timers
// manually rather than sleeping.
type mockTimerManager struct {
	mu    sync.Mutex
	tasks []func()
}

func (t *mockTimerManager) Schedule(task func(), delay time.Duration) TimerHandle {
	t.mu.Lock()
	t.tasks = append(t.tasks, task)
	t.mu.Unlock()
	return &mockHandle{}
}

func (t *mockTimerManager) fireAll() {
	t.mu.Lock()
	tasks := t.tasks
	t.tasks = nil
	t.mu.Unlock()
	for _, task := range tasks {
		task()
	}
}

// noopMetricsSink discards every metric, the way a replicator should
// behave when no sink is configured.
type noopMetricsSink struct{}

func (noopMetricsSink) SetGaugeWithLabels([]string, float32, []metrics.Label)       {}
func (noopMetricsSink) IncrCounterWithLabels([]string, float32, []metrics.Label)    {}
func (noopMetricsSink) AddSampleWithLabels([]string, float32, []metrics.Label)      {}
func (noopMetricsSink) MeasureSinceWithLabels([]string, time.Time, []metrics.Label) {}
