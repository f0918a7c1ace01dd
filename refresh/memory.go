package refresh

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local [Store]. It is intended for tests, single-node
// deployments and examples.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryStore returns an empty store. now defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		records: make(map[string]Record),
		now:     now,
	}
}

// Get implements [Store].
func (s *MemoryStore) Get(ctx context.Context, key string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.liveLocked(key)
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Put implements [Store].
func (s *MemoryStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := CheckPut(key, value, ttl); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = Record{PrincipalKey: key, TokenValue: value, ExpiresAt: s.now().Add(ttl)}
	return nil
}

// CompareAndSwap implements [Store].
func (s *MemoryStore) CompareAndSwap(ctx context.Context, key, old, next string, ttl time.Duration) error {
	if err := CheckPut(key, next, ttl); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.liveLocked(key)
	if !ok {
		return ErrNotFound
	}
	if rec.TokenValue != old {
		return ErrMismatch
	}
	s.records[key] = Record{PrincipalKey: key, TokenValue: next, ExpiresAt: s.now().Add(ttl)}
	return nil
}

// Delete implements [Store].
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of live records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key := range s.records {
		if _, ok := s.liveLocked(key); ok {
			n++
		}
	}
	return n
}

func (s *MemoryStore) liveLocked(key string) (Record, bool) {
	rec, ok := s.records[key]
	if !ok {
		return Record{}, false
	}
	if !s.now().Before(rec.ExpiresAt) {
		delete(s.records, key)
		return Record{}, false
	}
	return rec, true
}
