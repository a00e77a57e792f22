// Package prometheus exposes authsession metrics through client_golang.
//
// [NewCollector] adapts a client's MetricsSnapshot to a prometheus.Collector
// that can be registered anywhere. [NewPrometheusExporter] wraps the collector
// in a private registry and serves it with promhttp. Counter names are
// prefixed authsession_ and end in _total; the request and renewal latency
// histograms end in _seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate client state.
package prometheus
