// Package edgeAuth authenticates HTTP requests at the edge from signed session
// cookies that wrap identity-provider ID tokens and refresh tokens.
//
// An [Engine] verifies the cookie signature against a rotating key ring,
// validates the ID token locally against the provider's public keys, and
// exchanges the refresh token for a new ID token when the old one has expired.
// Every request ends in exactly one [Outcome]: valid, invalid (an expected
// rejection with an [InvalidReason]) or error.
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build].
//
// # Architecture boundaries
//
// edgeAuth is the public surface. It exposes [Engine], [Builder], [Config] and
// value types (Principal, SessionInfo, MetricsSnapshot). Cookie encoding
// lives in session, key rotation in keyring, token validation in jwt and
// provider HTTP calls in provider. Flow orchestration, audit dispatch and
// metrics live under internal/.
//
// # What this package must NOT do
//
//   - Expose the provider client, Redis clients or key material in its API.
//   - Perform I/O outside of Engine methods.
//   - Retry provider calls. Each refresh maps to one exchange request.
//
// # Performance contract
//
// Authenticate on a valid, unexpired session makes no network calls unless
// CheckRevoked is set. Public keys are cached per process and, when
// KeyCache is enabled, shared through Redis.
package edgeAuth
