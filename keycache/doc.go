// Package keycache implements a Redis-backed shared cache for identity-provider
// public key sets, so a fleet of edge instances fetches the key set once per
// max-age window instead of once per process.
//
// # Architecture boundaries
//
// The store deals in opaque bytes with a TTL. Parsing and validating the key set
// is the caller's responsibility (see provider.KeySet).
//
// # What this package must NOT do
//
//   - Store session or token material.
//   - Keep entries without an expiry.
package keycache
