// Package jwt verifies identity-provider ID tokens and mints provider custom tokens.
//
// # Architecture boundaries
//
// Validator performs structural decoding, RS256 signature verification against a
// KeySource, and local claim checks. It never calls the network itself; key
// resolution is delegated to the KeySource, and revocation is the caller's job.
//
// Errors are classified with sentinels: ErrMalformed for undecodable tokens,
// ErrInvalid for signature and claim failures, ErrExpired (returned together with
// the claims) for tokens that only fail on expiry. Any other error comes from the
// KeySource and means the verdict could not be reached.
//
// # What this package must NOT do
//
//   - Accept algorithms other than RS256.
//   - Log or persist token material.
package jwt
