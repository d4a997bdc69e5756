// Package provider is the edge's client for the identity provider: refresh-token
// exchange, custom-token sign-in, account lookup, service-account OAuth and the
// ID-token public key set.
//
// # Architecture boundaries
//
// Every call is a single HTTP request bound to the caller's context. The package
// does not retry; callers classify failures with IsRejected (terminal 4xx) versus
// everything else (transport or server failure).
//
// Credential and KeySet are process-wide caches guarded by mutexes.
//
// # What this package must NOT do
//
//   - Decide whether a request is authenticated.
//   - Log tokens or service-account material.
package provider
