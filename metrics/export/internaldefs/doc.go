// Package internaldefs holds the metric names and bucket bounds shared by the
// edgeAuth exporters, so Prometheus and OpenTelemetry report identical names.
//
// # What this package must NOT do
//
//   - Import an exporter package.
//   - Perform I/O.
package internaldefs
