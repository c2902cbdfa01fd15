package raft

import (
	"fmt"
	"log"
	"time"
)

// Options carries the tunables a replicator needs, mirroring the
// teacher's Config (r.conf.CommitTimeout, r.conf.MaxAppendEntries,
// r.conf.HeartbeatTimeout in mauri870-raft/replication.go) but scoped to
// the single-peer replicator instead of the whole node.
type Options struct {
	GroupID  string
	LeaderID string
	PeerID   string
	Endpoint string
	Term     uint64

	// MaxInflightMsgs caps the inflight queue depth (spec.md §4.2).
	MaxInflightMsgs int
	// MaxEntriesPerBatch caps entries per AppendEntries (spec.md §4.5).
	MaxEntriesPerBatch int
	// MaxBodyBytes caps the accumulated payload size per batch.
	MaxBodyBytes int

	HeartbeatTimeout time.Duration
	ElectionTimeout  time.Duration

	LogStore  LogStore
	Ballot    BallotBox
	Snapshots SnapshotStorage
	RPC       RPCService
	Timers    TimerManager
	Metrics   MetricsSink
	StepDown  NodeStepDown
	Logger    *log.Logger
}

// Validate mirrors hashicorp/raft's ValidateConfig: reject nonsensical
// tunables at construction time instead of failing obscurely later.
func (o *Options) Validate() error {
	if o.MaxInflightMsgs <= 0 {
		return fmt.Errorf("raft: MaxInflightMsgs must be positive")
	}
	if o.MaxEntriesPerBatch <= 0 {
		return fmt.Errorf("raft: MaxEntriesPerBatch must be positive")
	}
	if o.MaxBodyBytes <= 0 {
		return fmt.Errorf("raft: MaxBodyBytes must be positive")
	}
	if o.HeartbeatTimeout <= 0 {
		return fmt.Errorf("raft: HeartbeatTimeout must be positive")
	}
	if o.ElectionTimeout <= 0 {
		return fmt.Errorf("raft: ElectionTimeout must be positive")
	}
	if o.LogStore == nil || o.Ballot == nil || o.Snapshots == nil || o.RPC == nil || o.Timers == nil {
		return fmt.Errorf("raft: all collaborators must be supplied")
	}
	if o.PeerID == "" || o.Endpoint == "" {
		return fmt.Errorf("raft: PeerID and Endpoint are required")
	}
	return nil
}
