// Package middleware exposes HTTP adapters over bearerAuth.Engine.
//
// # Handlers
//
//   - [Guard] reads the access header, authenticates the token and attaches the
//     principal to the request context.
//   - [RequireAuthority] rejects authenticated requests lacking an authority.
//   - [RefreshHandler] rotates the refresh token presented in the refresh header and
//     writes the new pair back as response headers.
//   - [GinGuard] is the gin equivalent of Guard.
//
// Every authentication failure is answered with 401 and no detail; the cause is visible
// in Engine logs, metrics and audit events.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Access stores (Engine handles I/O).
package middleware
