package raft

import (
	"time"

	"github.com/armon/go-metrics"
)

// LogStore is the subset of the leader's log store a replicator needs.
// term_of returns 0 for compacted or unknown indices.
type LogStore interface {
	LastIndex() uint64
	FirstIndex() uint64
	TermOf(index uint64) uint64
	GetEntry(index uint64) (*LogEntry, bool)
	// Wait registers a one-shot waiter that fires cb(arg) once the log
	// advances past index (or the wait is aborted via RemoveWaiter).
	Wait(index uint64, cb func(arg interface{}), arg interface{}) uint64
	RemoveWaiter(waitID uint64)
}

// BallotBox is the commit tracker a replicator reports peer progress to.
type BallotBox interface {
	LastCommittedIndex() uint64
	CommitAt(start, end uint64, peerID string)
}

// SnapshotReader is a scoped resource exposing metadata and a transfer URI
// for the snapshot currently being installed on a peer. Release must be
// called exactly once, on every exit path out of the Snapshot state.
type SnapshotReader interface {
	Load() (*SnapshotMeta, bool)
	GenerateURIForCopy() (string, bool)
	Path() string
	Release()
}

// SnapshotStorage opens the latest snapshot for transfer to a lagging peer.
type SnapshotStorage interface {
	Open() (SnapshotReader, bool)
}

// RPCHandle is a best-effort cancellable reference to an in-flight RPC.
type RPCHandle interface {
	Cancel()
}

// RPCService is the transport used to talk to a single remote peer.
type RPCService interface {
	Connect(endpoint string) bool
	AppendEntries(endpoint string, req *AppendEntriesRequest, timeout time.Duration, cb func(*AppendEntriesResponse, error)) RPCHandle
	InstallSnapshot(endpoint string, req *InstallSnapshotRequest, cb func(*InstallSnapshotResponse, error)) RPCHandle
	TimeoutNow(endpoint string, req *TimeoutNowRequest, timeout time.Duration, cb func(*TimeoutNowResponse, error)) RPCHandle
}

// TimerHandle is a best-effort cancellable reference to a scheduled task.
type TimerHandle interface {
	Cancel()
}

// TimerManager schedules delayed callbacks.
type TimerManager interface {
	Schedule(task func(), delay time.Duration) TimerHandle
}

// NodeStepDown is the node-level callback invoked when a peer reveals a
// higher term than ours.
type NodeStepDown func(newTerm uint64)

// MetricsSink is the registry a replicator registers its gauges against.
// *metrics.Metrics from github.com/armon/go-metrics satisfies this
// directly.
type MetricsSink interface {
	SetGaugeWithLabels(key []string, val float32, labels []metrics.Label)
	IncrCounterWithLabels(key []string, val float32, labels []metrics.Label)
	AddSampleWithLabels(key []string, val float32, labels []metrics.Label)
	MeasureSinceWithLabels(key []string, start time.Time, labels []metrics.Label)
}
