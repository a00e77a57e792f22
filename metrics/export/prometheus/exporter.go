package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrEthical07/authsession"
	"github.com/MrEthical07/authsession/metrics/export/internaldefs"
)

// MetricsSource is what the exporter reads on every scrape. *authsession.Client
// implements it.
type MetricsSource interface {
	MetricsSnapshot() authsession.MetricsSnapshot
	AuditDropped() uint64
}

type counterDesc struct {
	id   authsession.MetricID
	desc *prometheus.Desc
}

type histogramDesc struct {
	id   authsession.MetricID
	desc *prometheus.Desc
}

// Collector is a prometheus.Collector over a [MetricsSource]. Values are read
// at scrape time; nothing is cached.
type Collector struct {
	source       MetricsSource
	counters     []counterDesc
	histograms   []histogramDesc
	auditDropped *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a [Collector] reading from source.
func NewCollector(source MetricsSource) *Collector {
	c := &Collector{
		source:       source,
		counters:     make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms:   make([]histogramDesc, 0, len(internaldefs.HistogramDefs)),
		auditDropped: prometheus.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, counterDesc{id: def.ID, desc: prometheus.NewDesc(def.Name, def.Help, nil, nil)})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, histogramDesc{id: def.ID, desc: prometheus.NewDesc(def.Name, def.Help, nil, nil)})
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.counters {
		ch <- d.desc
	}
	for _, d := range c.histograms {
		ch <- d.desc
	}
	ch <- c.auditDropped
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c == nil || c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()

	for _, d := range c.counters {
		ch <- prometheus.MustNewConstMetric(d.desc, prometheus.CounterValue, float64(snapshot.Counters[d.id]))
	}

	for _, d := range c.histograms {
		raw, ok := snapshot.Histograms[d.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, bound := range internaldefs.HistogramUpperBounds {
			buckets[bound] = cumulative[i]
		}
		// Sum is not tracked by the in-process histograms.
		ch <- prometheus.MustNewConstHistogram(d.desc, cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(c.auditDropped, prometheus.CounterValue, float64(c.source.AuditDropped()))
}

// PrometheusExporter serves a [Collector] from its own registry.
type PrometheusExporter struct {
	registry  *prometheus.Registry
	collector *Collector
}

// NewPrometheusExporter creates an exporter reading from client.
func NewPrometheusExporter(client *authsession.Client) *PrometheusExporter {
	return NewPrometheusExporterFromSource(client)
}

// NewPrometheusExporterFromSource creates an exporter reading from source.
func NewPrometheusExporterFromSource(source MetricsSource) *PrometheusExporter {
	registry := prometheus.NewRegistry()
	collector := NewCollector(source)
	registry.MustRegister(collector)
	return &PrometheusExporter{registry: registry, collector: collector}
}

// Registry returns the exporter's registry so callers can add their own
// collectors to the same endpoint.
func (p *PrometheusExporter) Registry() *prometheus.Registry {
	return p.registry
}

// Handler returns an http.Handler serving the registry in the Prometheus
// exposition format.
func (p *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
