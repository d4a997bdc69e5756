// Package keyring holds the ordered HMAC secrets used to sign session cookies.
//
// # Rotation
//
// The first secret signs; every secret verifies. Prepending a new secret starts
// signing with it while cookies signed by older secrets keep verifying until
// those secrets are removed from the configuration.
//
// # What this package must NOT do
//
//   - Know about cookies, tokens or HTTP.
//   - Compare signatures with non constant-time equality.
package keyring
