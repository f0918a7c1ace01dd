// Package redisstore implements refresh.Store on Redis. Each principal owns one string
// key holding the current token value, with the record lifetime as the key TTL.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/bearerAuth/refresh"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces refresh keys when no prefix is configured.
const DefaultPrefix = "brt"

const (
	swapStatusNotFound int64 = 0
	swapStatusMismatch int64 = 2
	swapStatusSwapped  int64 = 3
)

const compareAndSwapScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  return 2
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 3
`

var compareAndSwapLua = redis.NewScript(compareAndSwapScript)

// Store is a Redis-backed refresh.Store.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// New creates a [Store] on the given client. An empty prefix selects DefaultPrefix.
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{redis: client, prefix: prefix, now: time.Now}
}

func (s *Store) key(principalKey string) string {
	return s.prefix + ":" + principalKey
}

// Get returns the live record. ExpiresAt is derived from the key's remaining TTL.
//
//	Performance: 1 pipelined round trip (GET + PTTL).
func (s *Store) Get(ctx context.Context, principalKey string) (refresh.Record, error) {
	key := s.key(principalKey)

	var (
		getCmd  *redis.StringCmd
		pttlCmd *redis.DurationCmd
	)
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		getCmd = pipe.Get(ctx, key)
		pttlCmd = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return refresh.Record{}, fmt.Errorf("%w: %v", refresh.ErrUnavailable, err)
	}

	value, err := getCmd.Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return refresh.Record{}, refresh.ErrNotFound
		}
		return refresh.Record{}, fmt.Errorf("%w: %v", refresh.ErrUnavailable, err)
	}

	rec := refresh.Record{PrincipalKey: principalKey, TokenValue: value}
	if ttl, err := pttlCmd.Result(); err == nil && ttl > 0 {
		rec.ExpiresAt = s.now().Add(ttl)
	}
	return rec, nil
}

// Put overwrites the principal's value.
//
//	Performance: 1 Redis SET.
func (s *Store) Put(ctx context.Context, principalKey, value string, ttl time.Duration) error {
	if err := refresh.CheckPut(principalKey, value, ttl); err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(principalKey), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", refresh.ErrUnavailable, err)
	}
	return nil
}

// CompareAndSwap replaces old with next in a single Lua script, so concurrent rotations
// of the same value have exactly one winner.
//
//	Performance: 1 EVALSHA.
func (s *Store) CompareAndSwap(ctx context.Context, principalKey, old, next string, ttl time.Duration) error {
	if err := refresh.CheckPut(principalKey, next, ttl); err != nil {
		return err
	}
	ttlMillis := ttl.Milliseconds()
	if ttlMillis < 1 {
		ttlMillis = 1
	}

	status, err := compareAndSwapLua.Run(ctx, s.redis, []string{s.key(principalKey)}, old, next, ttlMillis).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", refresh.ErrUnavailable, err)
	}

	switch status {
	case swapStatusSwapped:
		return nil
	case swapStatusNotFound:
		return refresh.ErrNotFound
	case swapStatusMismatch:
		return refresh.ErrMismatch
	default:
		return fmt.Errorf("%w: unexpected swap status %d", refresh.ErrUnavailable, status)
	}
}

// Delete removes the principal's value. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, principalKey string) error {
	if err := s.redis.Del(ctx, s.key(principalKey)).Err(); err != nil {
		return fmt.Errorf("%w: %v", refresh.ErrUnavailable, err)
	}
	return nil
}

// Ping measures Redis round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", refresh.ErrUnavailable, err)
	}
	return time.Since(start), nil
}

var _ refresh.Store = (*Store)(nil)
