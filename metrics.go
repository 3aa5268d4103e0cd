package bitguard

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	MetricTokenIssued MetricID = iota
	MetricValidateSuccess
	MetricValidateInvalid
	MetricValidateExpired
	MetricRefreshSuccess
	MetricRefreshRevoked
	MetricRefreshFailure
	MetricRefreshRateLimited
	MetricRevoke
	MetricLoginSuccess
	MetricLoginFailure
	MetricLoginRateLimited
	MetricAuthorizeAllowed
	MetricAuthorizeAuthRequired
	MetricAuthorizeAuthInvalid
	MetricAuthorizeNoModuleAccess
	MetricAuthorizeInsufficient
	MetricAuthorizeAdminOnly
	MetricAuthorizeUnavailable
	MetricGrantChanged
	MetricAuthorizeLatency
	metricIDCount
)

// MetricCount is the number of defined MetricIDs.
const MetricCount = int(metricIDCount)

// latencyBounds are the inclusive upper bounds of every finite latency bucket.
// One extra overflow bucket follows them.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const latencyBucketCount = len(latencyBounds) + 1

// counter sits on its own cache line so hot counters do not share one.
type counter struct {
	n atomic.Uint64
	_ [56]byte
}

type latencyHistogram [latencyBucketCount]atomic.Uint64

func (h *latencyHistogram) observe(d time.Duration) {
	i := 0
	for i < len(latencyBounds) && d > latencyBounds[i] {
		i++
	}
	h[i].Add(1)
}

func (h *latencyHistogram) load() []uint64 {
	out := make([]uint64, latencyBucketCount)
	for i := range h {
		out[i] = h[i].Load()
	}
	return out
}

// Metrics holds the engine's in-process counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	on        bool
	latencyOn bool
	counters  [metricIDCount]counter
	latency   latencyHistogram
}

// MetricsSnapshot is a point-in-time copy of all metrics. Histogram buckets are
// non-cumulative, upper bounds 5, 10, 25, 50, 100, 250, 500 ms and +Inf.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		on:        cfg.Enabled,
		latencyOn: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool { return m != nil && m.on }

func (m *Metrics) LatencyEnabled() bool { return m != nil && m.latencyOn }

func (m *Metrics) Inc(id MetricID) { m.Add(id, 1) }

func (m *Metrics) Add(id MetricID, n uint64) {
	if !m.Enabled() || id >= MetricAuthorizeLatency {
		return
	}
	m.counters[id].n.Add(n)
}

// Observe records d. MetricAuthorizeLatency is the only histogram; other IDs
// are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if id != MetricAuthorizeLatency || !m.LatencyEnabled() {
		return
	}
	m.latency.observe(d)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricAuthorizeLatency {
		return 0
	}
	return m.counters[id].n.Load()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return snap
	}
	for id := MetricID(0); id < MetricAuthorizeLatency; id++ {
		snap.Counters[id] = m.counters[id].n.Load()
	}
	if m.latencyOn {
		snap.Histograms[MetricAuthorizeLatency] = m.latency.load()
	}
	return snap
}
