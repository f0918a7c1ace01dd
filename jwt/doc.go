// Package jwt owns the symmetric signing key and the HS256 token codec: it issues
// prefixed compact tokens for the access and refresh kinds and classifies presented
// tokens into a tagged [Outcome] instead of a bare boolean.
//
// # Architecture boundaries
//
// This package is pure: no I/O, no store lookups, no logging. Clock access goes
// through the injected Config.Now so expiry can be tested deterministically.
package jwt
