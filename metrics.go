package authsession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one counter or histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected or failed logins.
	MetricLoginFailure
	// MetricRegisterSuccess counts successful registrations.
	MetricRegisterSuccess
	// MetricRegisterFailure counts failed registrations.
	MetricRegisterFailure
	// MetricLogout counts logouts.
	MetricLogout
	// MetricLogoutRemoteFailure counts logouts whose server call failed.
	MetricLogoutRemoteFailure
	// MetricRefreshSuccess counts renewal cycles that produced new tokens.
	MetricRefreshSuccess
	// MetricRefreshFailure counts renewal cycles that ended the session.
	MetricRefreshFailure
	// MetricRefreshCoalesced counts callers that joined an in-flight renewal.
	MetricRefreshCoalesced
	// MetricRetry counts requests re-sent after renewal.
	MetricRetry
	// MetricSessionRestored counts silent restores on boot.
	MetricSessionRestored
	// MetricSessionCleared counts local session clears.
	MetricSessionCleared
	// MetricHydrateSuccess counts successful user refreshes.
	MetricHydrateSuccess
	// MetricHydrateTransient counts hydrations that kept the cached identity.
	MetricHydrateTransient
	// MetricRequestFailure counts API calls that failed at any layer.
	MetricRequestFailure
	// MetricRequestLatency is the API call latency histogram.
	MetricRequestLatency
	// MetricRefreshLatency is the renewal cycle latency histogram.
	MetricRefreshLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and fixed-bucket latency histograms. A
// nil or disabled Metrics records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every metric. Histogram buckets
// are non-cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a [Metrics] from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into a histogram. Only histogram IDs accept observations.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || !isHistogram(id) {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value returns a counter's current value.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and every histogram when enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 2),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if isHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range []MetricID{MetricRequestLatency, MetricRefreshLatency} {
			buckets := make([]uint64, histBucketCount)
			for i := range buckets {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}
	return s
}

func isHistogram(id MetricID) bool {
	return id == MetricRequestLatency || id == MetricRefreshLatency
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}

// pipelineObserver feeds request pipeline events into Metrics.
type pipelineObserver struct {
	m *Metrics
}

func (o pipelineObserver) ObserveRequest(_, _ string, status int, d time.Duration) {
	o.m.Observe(MetricRequestLatency, d)
	if status == 0 || status >= 400 {
		o.m.Inc(MetricRequestFailure)
	}
}

func (o pipelineObserver) ObserveRetry() {
	o.m.Inc(MetricRetry)
}
