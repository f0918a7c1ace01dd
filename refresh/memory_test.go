package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newMemoryStoreTest(t *testing.T) (*MemoryStore, *stepClock) {
	t.Helper()
	clock := &stepClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewMemoryStore(clock.Now), clock
}

func TestMemoryStorePutGetOverwrite(t *testing.T) {
	store, clock := newMemoryStoreTest(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}
	if err := store.Put(ctx, "alice", "Bearer one", time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "alice", "Bearer two", time.Hour); err != nil {
		t.Fatalf("put overwrite: %v", err)
	}
	rec, err := store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.TokenValue != "Bearer two" || rec.PrincipalKey != "alice" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !rec.ExpiresAt.Equal(clock.Now().Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", rec.ExpiresAt)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one record, got %d", store.Len())
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store, clock := newMemoryStoreTest(t)
	ctx := context.Background()

	if err := store.Put(ctx, "alice", "Bearer one", time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}
	clock.Advance(time.Minute)
	if _, err := store.Get(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired record to read as missing, got %v", err)
	}
	if err := store.CompareAndSwap(ctx, "alice", "Bearer one", "Bearer two", time.Minute); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound swapping expired record, got %v", err)
	}
}

func TestMemoryStoreCompareAndSwap(t *testing.T) {
	store, _ := newMemoryStoreTest(t)
	ctx := context.Background()

	if err := store.CompareAndSwap(ctx, "ghost", "a", "b", time.Hour); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Put(ctx, "alice", "a", time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.CompareAndSwap(ctx, "alice", "stale", "b", time.Hour); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
	if err := store.CompareAndSwap(ctx, "alice", "a", "b", time.Hour); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if err := store.CompareAndSwap(ctx, "alice", "a", "c", time.Hour); !errors.Is(err, ErrMismatch) {
		t.Fatalf("replayed swap should mismatch, got %v", err)
	}
	rec, _ := store.Get(ctx, "alice")
	if rec.TokenValue != "b" {
		t.Fatalf("expected b, got %q", rec.TokenValue)
	}
}

func TestMemoryStoreConcurrentSwapSingleWinner(t *testing.T) {
	store, _ := newMemoryStoreTest(t)
	ctx := context.Background()

	if err := store.Put(ctx, "alice", "current", time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func(next string) {
			defer wg.Done()
			<-start
			results <- store.CompareAndSwap(ctx, "alice", "current", next, time.Hour)
		}(fmt.Sprintf("next-%d", i))
	}
	close(start)
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrMismatch):
		default:
			t.Fatalf("unexpected swap error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly one winner, got %d", success)
	}
}

func TestMemoryStoreDeleteIdempotent(t *testing.T) {
	store, _ := newMemoryStoreTest(t)
	ctx := context.Background()

	if err := store.Put(ctx, "alice", "a", time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Delete(ctx, "alice"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := store.Delete(ctx, "alice"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := store.Get(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStoreRejectsInvalidInput(t *testing.T) {
	store, _ := newMemoryStoreTest(t)
	ctx := context.Background()

	cases := []struct {
		key, value string
		ttl        time.Duration
	}{
		{"", "v", time.Hour},
		{"k", "", time.Hour},
		{"k", "v", 0},
	}
	for _, tc := range cases {
		if err := store.Put(ctx, tc.key, tc.value, tc.ttl); !errors.Is(err, ErrInvalidRecord) {
			t.Fatalf("Put(%q,%q,%v): expected ErrInvalidRecord, got %v", tc.key, tc.value, tc.ttl, err)
		}
	}
}

func TestMemoryStoreHonoursCanceledContext(t *testing.T) {
	store, _ := newMemoryStoreTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Put(ctx, "alice", "a", time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
