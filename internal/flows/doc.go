// Package flows contains pure-function orchestrators for the Engine's request
// path.
//
// RunAuthenticate and RunRefresh accept a typed dependency struct and return
// a result carrying a failure kind. The root package maps failure kinds to
// public outcomes, metrics and audit events.
//
// # Architecture boundaries
//
// Flow functions coordinate the cookie codec, signature verifier, ID token
// validator and identity provider client. They do NOT own any of these
// resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import edgeAuth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
