// Package refresh defines the persisted refresh-token record and the store contract
// used by the refresh flow, plus an in-memory implementation.
//
// # Store contract
//
// A store keeps at most one live token value per principal key. Put overwrites,
// CompareAndSwap replaces the value only when the current value equals the expected
// one, and does so atomically with respect to concurrent callers on the same key.
// Expired records behave exactly like missing ones.
//
// # Architecture boundaries
//
// This package does not parse or sign tokens; values are opaque strings compared
// byte for byte. Redis and Postgres implementations live in refresh/redisstore and
// postgres.
package refresh
