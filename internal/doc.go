// Package internal contains helpers that are private to edgeAuth, currently
// random secret generation for cookie signature keys.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - flows: pure-function orchestration of authenticate and refresh
//   - metrics: lock-free counters and latency histograms
//   - testkit: fake identity provider and ID-token minting for tests
//
// # What this package must NOT do
//
//   - Export types that appear in the public edgeAuth API.
//   - Be imported by any package outside the edgeAuth module.
package internal
