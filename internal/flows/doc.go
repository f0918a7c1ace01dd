// Package flows contains pure-function orchestrators for the Engine's stateful operations.
//
// Each flow function (RunRefresh, RunAuthenticate, RunStartSession, RunLogout) accepts a
// typed dependency struct and returns a result value carrying a failure kind instead of
// mapping errors itself. The root package maps failure kinds to public errors, metrics,
// audit events and log lines.
//
// # Architecture boundaries
//
// Flow functions coordinate the token codec, refresh store and principal lookup. They do
// NOT own any of these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import bearerAuth (to avoid import cycles).
//   - Log or emit audit events.
package flows
