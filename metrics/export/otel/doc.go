// Package otel publishes authsession metrics through the OpenTelemetry metric
// API.
//
// [NewOTelExporter] registers an Int64ObservableCounter per counter and an
// Int64ObservableGauge per cumulative histogram bucket. One callback reads
// the client's MetricsSnapshot on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
