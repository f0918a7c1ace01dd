// Package bearerAuth issues and verifies prefixed HS256 access/refresh token pairs,
// rotates refresh tokens against a persisted store and turns request headers into an
// authenticated principal.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// bearerAuth is the public surface. It exposes [Engine], [Builder], [Config], and value
// types ([Principal], [TokenPair], [MetricsSnapshot]). Flow orchestration and audit
// dispatch live under internal/; the token codec lives in jwt, store implementations in
// refresh, refresh/redisstore and postgres.
//
// # What this package must NOT do
//
//   - Log or audit token strings.
//   - Keep signing material in package-level state.
//   - Report success for a token that did not validate.
//
// # Performance contract
//
// Validate and Authenticate's token check are pure CPU. Refresh performs one store read
// and one atomic compare-and-swap.
package bearerAuth
