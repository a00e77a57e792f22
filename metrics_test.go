package authsession

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("disabled snapshot must be empty, got %+v", snap)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricRequestLatency, time.Millisecond)
	if m.Value(MetricLoginSuccess) != 0 || m.Enabled() || m.LatencyEnabled() {
		t.Fatalf("nil metrics must record nothing")
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricRefreshCoalesced)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricRefreshCoalesced); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	observations := []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		700 * time.Millisecond,
	}
	for _, d := range observations {
		m.Observe(MetricRequestLatency, d)
	}

	buckets := m.Snapshot().Histograms[MetricRequestLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsObserveIgnoresCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricLoginSuccess]; ok {
		t.Fatalf("counter IDs must not produce histograms")
	}
	if _, ok := snap.Counters[MetricRequestLatency]; ok {
		t.Fatalf("histogram IDs must not appear as counters")
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginFailure)
	m.Inc(MetricLoginFailure)
	m.Observe(MetricRefreshLatency, 2*time.Millisecond)

	snap := m.Snapshot()
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("expected MetricLoginSuccess=1 got %d", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricLoginFailure] != 2 {
		t.Fatalf("expected MetricLoginFailure=2 got %d", snap.Counters[MetricLoginFailure])
	}
	if snap.Histograms[MetricRefreshLatency][0] != 1 {
		t.Fatalf("expected first refresh bucket=1 got %d", snap.Histograms[MetricRefreshLatency][0])
	}
}

func TestPipelineObserver(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	o := pipelineObserver{m: m}

	o.ObserveRequest("GET", "/auth/me", 200, 3*time.Millisecond)
	o.ObserveRequest("GET", "/auth/me", 401, 3*time.Millisecond)
	o.ObserveRequest("GET", "/auth/me", 0, 3*time.Millisecond)
	o.ObserveRetry()

	if got := m.Value(MetricRequestFailure); got != 2 {
		t.Fatalf("request failures = %d, want 2", got)
	}
	if got := m.Value(MetricRetry); got != 1 {
		t.Fatalf("retries = %d, want 1", got)
	}
	if got := m.Snapshot().Histograms[MetricRequestLatency][0]; got != 3 {
		t.Fatalf("latency bucket = %d, want 3", got)
	}
}
