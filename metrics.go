package raft

import (
	"time"

	gometrics "github.com/armon/go-metrics"
)

// replicatorMetrics wires every gauge and histogram named in spec.md §6
// into the teacher's single dependency, github.com/armon/go-metrics.
// Every key has the form raft.replicator.<metric> and the peer is told
// apart by "group" and "peer" labels; no replicator-<group>/<peer> name is
// built. Duplicate registration (re-Start after a Stop) is tolerated:
// go-metrics gauges/counters are idempotent by key, there is nothing to
// "register" up front.
type replicatorMetrics struct {
	sink   MetricsSink
	labels []gometrics.Label
}

func newReplicatorMetrics(sink MetricsSink, groupID, peerID string) *replicatorMetrics {
	return &replicatorMetrics{
		sink: sink,
		labels: []gometrics.Label{
			{Name: "group", Value: groupID},
			{Name: "peer", Value: peerID},
		},
	}
}

func (m *replicatorMetrics) setLogLag(lag float32) {
	if m.sink == nil {
		return
	}
	m.sink.SetGaugeWithLabels([]string{"raft", "replicator", "log-lags"}, lag, m.labels)
}

func (m *replicatorMetrics) setNextIndex(idx float32) {
	if m.sink == nil {
		return
	}
	m.sink.SetGaugeWithLabels([]string{"raft", "replicator", "next-index"}, idx, m.labels)
}

func (m *replicatorMetrics) incrHeartbeat() {
	if m.sink == nil {
		return
	}
	m.sink.IncrCounterWithLabels([]string{"raft", "replicator", "heartbeat-times"}, 1, m.labels)
}

func (m *replicatorMetrics) incrInstallSnapshot() {
	if m.sink == nil {
		return
	}
	m.sink.IncrCounterWithLabels([]string{"raft", "replicator", "install-snapshot-times"}, 1, m.labels)
}

func (m *replicatorMetrics) incrAppendEntries() {
	if m.sink == nil {
		return
	}
	m.sink.IncrCounterWithLabels([]string{"raft", "replicator", "append-entries-times"}, 1, m.labels)
}

func (m *replicatorMetrics) measureReplicateEntries(start time.Time) {
	if m.sink == nil {
		return
	}
	m.sink.MeasureSinceWithLabels([]string{"raft", "replicator", "replicate-entries"}, start, m.labels)
}

func (m *replicatorMetrics) recordBatch(count, bytes int) {
	if m.sink == nil {
		return
	}
	m.sink.AddSampleWithLabels([]string{"raft", "replicator", "replicate-entries-count"}, float32(count), m.labels)
	m.sink.AddSampleWithLabels([]string{"raft", "replicator", "replicate-entries-bytes"}, float32(bytes), m.labels)
}

func (m *replicatorMetrics) setInflightsCount(n int) {
	if m.sink == nil {
		return
	}
	m.sink.SetGaugeWithLabels([]string{"raft", "replicator", "replicate-inflights-count"}, float32(n), m.labels)
}

func (m *replicatorMetrics) incrMismatchFloor() {
	if m.sink == nil {
		return
	}
	m.sink.IncrCounterWithLabels([]string{"raft", "replicator", "mismatch-floor"}, 1, m.labels)
}
