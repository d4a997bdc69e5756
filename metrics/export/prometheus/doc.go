// Package prometheus exports edgeAuth counters and the Authenticate latency
// histogram through client_golang.
//
// [PrometheusExporter] is a [prometheus.Collector]; register it with any
// registry, or mount [PrometheusExporter.Handler] for a standalone endpoint.
// Counter names follow edgeauth_*_total and the histogram is
// edgeauth_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
