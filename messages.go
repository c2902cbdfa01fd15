package raft

// LogEntryType distinguishes the kinds of payloads carried in a log entry.
type LogEntryType uint8

const (
	// EntryNormal is an ordinary application command.
	EntryNormal LogEntryType = iota
	// EntryConfChange carries a membership change.
	EntryConfChange
	// EntryNoop is the empty entry a new leader commits on election.
	EntryNoop
)

// LogEntry is a single entry in the replicated log.
type LogEntry struct {
	Index uint64
	Term  uint64
	Type  LogEntryType
	Data  []byte
}

// size approximates the wire size of the entry for batching purposes.
func (e *LogEntry) size() int {
	return 24 + len(e.Data)
}

// AppendEntriesRequest is sent to replicate (or probe) a follower's log.
// A zero-entry request with Entries == nil is a probe or heartbeat.
type AppendEntriesRequest struct {
	Term           uint64
	GroupID        string
	LeaderID       string
	PeerID         string
	PrevLogIndex   uint64
	PrevLogTerm    uint64
	CommittedIndex uint64
	Entries        []*LogEntry
}

// AppendEntriesResponse is the follower's reply to AppendEntriesRequest.
type AppendEntriesResponse struct {
	Term        uint64
	Success     bool
	LastLogIndex uint64
}

// SnapshotMeta describes a snapshot available for transfer.
type SnapshotMeta struct {
	LastIncludedIndex uint64
	LastIncludedTerm  uint64
	Peers             []string
}

// InstallSnapshotRequest ships a snapshot reference to a follower.
type InstallSnapshotRequest struct {
	Term     uint64
	GroupID  string
	LeaderID string
	PeerID   string
	Meta     SnapshotMeta
	URI      string
}

// InstallSnapshotResponse is the follower's reply to InstallSnapshotRequest.
type InstallSnapshotResponse struct {
	Term    uint64
	Success bool
}

// TimeoutNowRequest instructs a follower to start an election immediately,
// used to hand off leadership during a planned transfer.
type TimeoutNowRequest struct {
	Term     uint64
	GroupID  string
	LeaderID string
	PeerID   string
}

// TimeoutNowResponse is the follower's reply to TimeoutNowRequest.
type TimeoutNowResponse struct {
	Term    uint64
	Success bool
}

// requestType identifies the kind of RPC an inflight record or buffered
// response belongs to.
type requestType uint8

const (
	requestAppendEntries requestType = iota
	requestInstallSnapshot
)

func (t requestType) String() string {
	switch t {
	case requestAppendEntries:
		return "AppendEntries"
	case requestInstallSnapshot:
		return "InstallSnapshot"
	default:
		return "unknown"
	}
}
