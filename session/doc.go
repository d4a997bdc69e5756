// Package session encodes signed session payloads into cookies and back.
//
// # Cookie schemes
//
// [SchemeSingle] stores the JSON payload, base64url encoded, in one cookie.
// [SchemeMultiple] splits it across name.id, name.refresh, name.custom and
// name.sig so that large tokens stay under the per-cookie browser limit.
//
// # Signatures
//
// The signature covers a length-prefixed concatenation of the three tokens
// ([Canonical]), so it does not depend on the cookie scheme or on map order.
// [Verify] must succeed before any token inside the payload is parsed.
//
// # What this package must NOT do
//
//   - Parse or validate the tokens it carries.
//   - Assemble cookie attributes (path, domain, max-age); the caller owns them.
//   - Perform I/O.
package session
