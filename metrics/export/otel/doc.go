// Package otel exports edgeAuth counters and the Authenticate latency
// histogram as OpenTelemetry observable instruments.
//
// Related counters share one instrument and are told apart by attribute:
// edgeauth.authenticate.requests carries outcome=valid|invalid|error,
// edgeauth.refresh and edgeauth.login carry result=success|failure, and
// edgeauth.revocation carries result=checked|revoked. Latency buckets are
// reported on edgeauth.authenticate.latency.bucket keyed by le.
//
// edgeauth.audit.dropped is split by event_type when the source exposes
// AuditDroppedByType, as [edgeAuth.Engine] does.
//
// A single callback reads [edgeAuth.Engine.MetricsSnapshot] on each
// collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
