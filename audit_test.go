package bearerAuth

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/bearerAuth/jwt"
	"github.com/MrEthical07/bearerAuth/refresh"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

func buildAuditTestEngine(t *testing.T, cfg Config, sink AuditSink) (*Engine, *refresh.MemoryStore) {
	t.Helper()

	store := refresh.NewMemoryStore(nil)
	engine, err := New().
		WithConfig(cfg).
		WithRefreshStore(store).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, store
}

func collectEvents(sink *ChannelSink, max int, wait time.Duration) []AuditEvent {
	events := make([]AuditEvent, 0, max)
	timeout := time.After(wait)
	for len(events) < max {
		select {
		case ev := <-sink.Events():
			events = append(events, ev)
		case <-timeout:
			return events
		}
	}
	return events
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = false

	sink := &countingSink{}
	engine, _ := buildAuditTestEngine(t, cfg, sink)

	pair, _ := engine.StartSession(context.Background(), "alice", jwt.RoleUser)
	_, _ = engine.Refresh(context.Background(), pair.RefreshToken)
	engine.Close()

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditRefreshEventsCarryFields(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 16
	cfg.Audit.DropIfFull = false

	sink := NewChannelSink(16)
	engine, _ := buildAuditTestEngine(t, cfg, sink)

	ctx := WithClientIP(context.Background(), "198.51.100.33")
	pair, err := engine.StartSession(ctx, "alice", jwt.RoleUser)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if _, err := engine.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	_, _ = engine.Refresh(ctx, pair.RefreshToken)

	events := collectEvents(sink, 3, 2*time.Second)
	if len(events) != 3 {
		t.Fatalf("expected 3 audit events, got %d", len(events))
	}

	wantTypes := []string{auditEventSessionStarted, auditEventRefreshSuccess, auditEventRefreshRejected}
	for i, ev := range events {
		if ev.EventType != wantTypes[i] {
			t.Fatalf("event %d: expected %s, got %s", i, wantTypes[i], ev.EventType)
		}
		if ev.IP != "198.51.100.33" {
			t.Fatalf("event %d: expected IP 198.51.100.33, got %q", i, ev.IP)
		}
		if ev.Subject != "alice" {
			t.Fatalf("event %d: expected subject alice, got %q", i, ev.Subject)
		}
	}

	rejected := events[2]
	if rejected.Success || rejected.Error != string(auditErrRefreshSuperseded) {
		t.Fatalf("unexpected rejection event %+v", rejected)
	}
	if rejected.Metadata["reason"] != RefreshSuperseded.String() || rejected.Metadata["stage"] != "lookup" {
		t.Fatalf("unexpected rejection metadata %v", rejected.Metadata)
	}
}

func TestAuditAuthFailureEvent(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true

	sink := NewChannelSink(4)
	engine, _ := buildAuditTestEngine(t, cfg, sink)

	_, _ = engine.Authenticate(context.Background(), "Bearer broken")

	events := collectEvents(sink, 1, 2*time.Second)
	if len(events) != 1 {
		t.Fatal("expected auth failure event")
	}
	ev := events[0]
	if ev.EventType != auditEventAuthFailure || ev.Error != string(auditErrInvalidToken) {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Metadata["status"] != jwt.StatusMalformed.String() {
		t.Fatalf("expected malformed status metadata, got %v", ev.Metadata)
	}
}

func TestAuditNoTokensInEvents(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 32
	cfg.Audit.DropIfFull = false

	sink := NewChannelSink(32)
	engine, _ := buildAuditTestEngine(t, cfg, sink)
	ctx := context.Background()

	pair, err := engine.StartSession(ctx, "alice", jwt.RoleUser)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	next, err := engine.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	_, _ = engine.Refresh(ctx, pair.RefreshToken)
	_ = engine.Logout(ctx, "alice")

	needles := []string{
		strings.TrimPrefix(pair.AccessToken, "Bearer "),
		strings.TrimPrefix(pair.RefreshToken, "Bearer "),
		strings.TrimPrefix(next.RefreshToken, "Bearer "),
		testSecret,
	}

	events := collectEvents(sink, 8, 500*time.Millisecond)
	if len(events) == 0 {
		t.Fatal("expected at least one audit event")
	}

	for _, ev := range events {
		for _, needle := range needles {
			if strings.Contains(ev.Error, needle) {
				t.Fatalf("sensitive value leaked in audit error field: %q", needle)
			}
			for k, v := range ev.Metadata {
				if strings.Contains(k, needle) || strings.Contains(v, needle) {
					t.Fatalf("sensitive value leaked in audit metadata: %q", needle)
				}
			}
		}
	}
}

func TestAuditErrorCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want AuditErrorCode
	}{
		{err: nil, want: ""},
		{err: &RefreshError{Kind: RefreshSuperseded}, want: auditErrRefreshSuperseded},
		{err: &RefreshError{Kind: RefreshNoPersistedToken}, want: auditErrNoPersistedToken},
		{err: &RefreshError{Kind: RefreshTokenInvalid}, want: auditErrInvalidToken},
		{err: &RefreshError{Kind: RefreshStoreUnavailable}, want: auditErrUnavailable},
		{err: &RefreshError{Kind: RefreshIssueFailed}, want: auditErrIssue},
		{err: &AuthError{Outcome: jwt.Outcome{Status: jwt.StatusExpired}}, want: auditErrInvalidToken},
		{err: ErrPrincipalNotFound, want: auditErrPrincipalNotFound},
		{err: ErrPrincipalLookup, want: auditErrUnavailable},
		{err: ErrEngineNotReady, want: auditErrInternal},
	}

	for _, tc := range cases {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
