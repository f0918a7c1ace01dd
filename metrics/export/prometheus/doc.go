// Package prometheus exposes bearerAuth engine metrics as a client_golang Collector.
//
// [NewPrometheusExporter] wraps an [bearerAuth.Engine]; each scrape reads one
// MetricsSnapshot and emits const metrics, so the engine hot path never touches
// Prometheus types. Counter names are prefixed bearerauth_*_total; the single histogram is
// bearerauth_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers register the exporter
//     or mount Handler, which uses a private registry.
//   - Mutate engine state.
package prometheus
