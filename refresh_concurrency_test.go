package bearerAuth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MrEthical07/bearerAuth/jwt"
	"github.com/MrEthical07/bearerAuth/refresh"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisEngine(t *testing.T) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return engine, mr
}

func runConcurrentRefresh(t *testing.T, engine *Engine, token string, n int) (int, int) {
	t.Helper()

	var wg sync.WaitGroup
	wg.Add(n)

	start := make(chan struct{})
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := engine.Refresh(context.Background(), token)
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	success := 0
	fail := 0
	for err := range results {
		if err == nil {
			success++
			continue
		}
		if errors.Is(err, ErrRefreshSuperseded) {
			fail++
			continue
		}
		t.Fatalf("unexpected refresh error: %v", err)
	}
	return success, fail
}

func TestRefreshConcurrencySingleWinnerMemory(t *testing.T) {
	te := newTestEngine(t, nil)

	pair, err := te.engine.StartSession(context.Background(), "alice", jwt.RoleUser)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	const n = 32
	success, fail := runConcurrentRefresh(t, te.engine, pair.RefreshToken, n)
	if success != 1 {
		t.Fatalf("expected exactly one refresh success, got %d", success)
	}
	if fail != n-1 {
		t.Fatalf("expected %d superseded failures, got %d", n-1, fail)
	}

	snap := te.engine.MetricsSnapshot()
	if snap.Counters[MetricRefreshSuccess] != 1 || snap.Counters[MetricRefreshSuperseded] != n-1 {
		t.Fatalf("unexpected refresh counters %v", snap.Counters)
	}
}

func TestRefreshConcurrencySingleWinnerRedis(t *testing.T) {
	engine, mr := newRedisEngine(t)

	pair, err := engine.StartSession(context.Background(), "alice", jwt.RoleUser)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if !mr.Exists("brt:alice") {
		t.Fatalf("expected refresh record under default prefix, keys=%v", mr.Keys())
	}

	const n = 16
	success, fail := runConcurrentRefresh(t, engine, pair.RefreshToken, n)
	if success != 1 {
		t.Fatalf("expected exactly one refresh success, got %d", success)
	}
	if fail != n-1 {
		t.Fatalf("expected %d superseded failures, got %d", n-1, fail)
	}
}

func TestRefreshStoreUnavailableRedis(t *testing.T) {
	engine, mr := newRedisEngine(t)

	pair, err := engine.StartSession(context.Background(), "alice", jwt.RoleUser)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	mr.Close()

	_, err = engine.Refresh(context.Background(), pair.RefreshToken)
	if !errors.Is(err, ErrStoreUnavailable) || !errors.Is(err, refresh.ErrUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
	var rerr *RefreshError
	if !errors.As(err, &rerr) || rerr.Kind != RefreshStoreUnavailable {
		t.Fatalf("expected RefreshStoreUnavailable kind, got %#v", err)
	}
}
