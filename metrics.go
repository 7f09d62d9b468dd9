package authkit

import "sync/atomic"

// MetricID identifies a specific counter in the in-process metrics system.
type MetricID uint8

const (
	// MetricOTPRequested is an exported constant or variable used by the session engine.
	MetricOTPRequested MetricID = iota
	// MetricOTPResent is an exported constant or variable used by the session engine.
	MetricOTPResent
	// MetricOTPResendBlocked is an exported constant or variable used by the session engine.
	MetricOTPResendBlocked
	// MetricOTPVerified is an exported constant or variable used by the session engine.
	MetricOTPVerified
	// MetricOTPRejected is an exported constant or variable used by the session engine.
	MetricOTPRejected
	// MetricRefreshSuccess is an exported constant or variable used by the session engine.
	MetricRefreshSuccess
	// MetricRefreshFailure is an exported constant or variable used by the session engine.
	MetricRefreshFailure
	// MetricSessionBootstrapped is an exported constant or variable used by the session engine.
	MetricSessionBootstrapped
	// MetricSessionInvalidated is an exported constant or variable used by the session engine.
	MetricSessionInvalidated
	// MetricLogout is an exported constant or variable used by the session engine.
	MetricLogout

	metricIDCount
)

// Metrics holds atomic counters for the engine's lifecycle events. All methods are
// safe for concurrent use; a nil *Metrics is a no-op.
type Metrics struct {
	counters [metricIDCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates an enabled Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Inc increments the counter identified by id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot returns a deep copy of all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
