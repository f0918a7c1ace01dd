package flows

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/bearerAuth/jwt"
	"github.com/MrEthical07/bearerAuth/principal"
	"github.com/MrEthical07/bearerAuth/refresh"
)

func newFlowManager(t *testing.T) *jwt.Manager {
	t.Helper()
	key, err := jwt.NewSigningKey("c2VjcmV0LWtleS0xMjM0NTY3ODkwMTIzNDU2")
	if err != nil {
		t.Fatalf("NewSigningKey: %v", err)
	}
	m, err := jwt.NewManager(jwt.Config{Key: key, AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func refreshDeps(m *jwt.Manager, store RefreshStore) RefreshDeps {
	return RefreshDeps{
		Validate:   m.Validate,
		IssuePair:  m.IssuePair,
		Scheme:     m.Scheme(),
		RefreshTTL: m.TTL(jwt.KindRefresh),
		Store:      store,
	}
}

// racingStore reports a matching record on Get but loses the swap, as when a
// concurrent refresh rotated the value in between.
type racingStore struct {
	value   string
	swapErr error
	getErr  error
}

func (s *racingStore) Get(_ context.Context, key string) (refresh.Record, error) {
	if s.getErr != nil {
		return refresh.Record{}, s.getErr
	}
	return refresh.Record{PrincipalKey: key, TokenValue: s.value}, nil
}

func (s *racingStore) CompareAndSwap(context.Context, string, string, string, time.Duration) error {
	return s.swapErr
}

func TestRunRefreshRotates(t *testing.T) {
	m := newFlowManager(t)
	store := refresh.NewMemoryStore(nil)
	ctx := context.Background()

	old, err := m.Issue("alice", jwt.RoleUser, jwt.KindRefresh)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := store.Put(ctx, "alice", old, time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	res := RunRefresh(ctx, old, refreshDeps(m, store))
	if res.Failure != RefreshFailureNone {
		t.Fatalf("expected success, got failure %d (%v)", res.Failure, res.Err)
	}
	if res.Subject != "alice" || res.Role != jwt.RoleUser {
		t.Fatalf("unexpected subject/role %q/%s", res.Subject, res.Role)
	}
	rec, _ := store.Get(ctx, "alice")
	if rec.TokenValue != res.Pair.RefreshToken {
		t.Fatal("store must hold the newly issued refresh token")
	}
	if rec.TokenValue == old {
		t.Fatal("refresh token was not rotated")
	}

	replay := RunRefresh(ctx, old, refreshDeps(m, store))
	if replay.Failure != RefreshFailureSuperseded || replay.Stage != RefreshStageLookup {
		t.Fatalf("expected superseded at lookup, got %d at %s", replay.Failure, replay.Stage)
	}
}

func TestRunRefreshAcceptsBareToken(t *testing.T) {
	m := newFlowManager(t)
	store := refresh.NewMemoryStore(nil)
	ctx := context.Background()

	old, _ := m.Issue("alice", jwt.RoleAdmin, jwt.KindRefresh)
	_ = store.Put(ctx, "alice", old, time.Hour)

	res := RunRefresh(ctx, strings.TrimPrefix(old, m.Scheme()), refreshDeps(m, store))
	if res.Failure != RefreshFailureNone {
		t.Fatalf("bare token should match persisted prefixed value, got %d", res.Failure)
	}
	if res.Role != jwt.RoleAdmin {
		t.Fatalf("role must carry over, got %s", res.Role)
	}
}

func TestRunRefreshInvalidToken(t *testing.T) {
	m := newFlowManager(t)
	res := RunRefresh(context.Background(), "Bearer not.a.jwt", refreshDeps(m, refresh.NewMemoryStore(nil)))
	if res.Failure != RefreshFailureToken {
		t.Fatalf("expected token failure, got %d", res.Failure)
	}
	if res.Outcome.Status != jwt.StatusMalformed {
		t.Fatalf("expected malformed outcome, got %s", res.Outcome.Status)
	}
	if !errors.Is(res.Err, jwt.ErrTokenRejected) {
		t.Fatalf("expected ErrTokenRejected, got %v", res.Err)
	}
}

func TestRunRefreshNoPersistedToken(t *testing.T) {
	m := newFlowManager(t)
	ghost, _ := m.Issue("ghost", jwt.RoleUser, jwt.KindRefresh)

	res := RunRefresh(context.Background(), ghost, refreshDeps(m, refresh.NewMemoryStore(nil)))
	if res.Failure != RefreshFailureNoRecord {
		t.Fatalf("expected no-record failure, got %d", res.Failure)
	}
}

func TestRunRefreshLosesSwapRace(t *testing.T) {
	m := newFlowManager(t)
	tok, _ := m.Issue("alice", jwt.RoleUser, jwt.KindRefresh)

	res := RunRefresh(context.Background(), tok, refreshDeps(m, &racingStore{value: tok, swapErr: refresh.ErrMismatch}))
	if res.Failure != RefreshFailureSuperseded || res.Stage != RefreshStageSwap {
		t.Fatalf("expected superseded at swap, got %d at %s", res.Failure, res.Stage)
	}

	res = RunRefresh(context.Background(), tok, refreshDeps(m, &racingStore{value: tok, swapErr: refresh.ErrNotFound}))
	if res.Failure != RefreshFailureNoRecord || res.Stage != RefreshStageSwap {
		t.Fatalf("expected no-record at swap, got %d at %s", res.Failure, res.Stage)
	}
}

func TestRunRefreshStoreUnavailable(t *testing.T) {
	m := newFlowManager(t)
	tok, _ := m.Issue("alice", jwt.RoleUser, jwt.KindRefresh)
	down := errors.Join(refresh.ErrUnavailable, errors.New("dial tcp: connection refused"))

	res := RunRefresh(context.Background(), tok, refreshDeps(m, &racingStore{getErr: down}))
	if res.Failure != RefreshFailureStore || res.Stage != RefreshStageLookup {
		t.Fatalf("expected store failure at lookup, got %d at %s", res.Failure, res.Stage)
	}

	res = RunRefresh(context.Background(), tok, refreshDeps(m, &racingStore{value: tok, swapErr: down}))
	if res.Failure != RefreshFailureStore || res.Stage != RefreshStageSwap {
		t.Fatalf("expected store failure at swap, got %d at %s", res.Failure, res.Stage)
	}
}

func TestRunRefreshIssueFailure(t *testing.T) {
	m := newFlowManager(t)
	tok, _ := m.Issue("alice", jwt.RoleUser, jwt.KindRefresh)
	deps := refreshDeps(m, &racingStore{value: tok})
	deps.IssuePair = func(string, jwt.Role) (jwt.Pair, error) { return jwt.Pair{}, errors.New("sign failed") }

	res := RunRefresh(context.Background(), tok, deps)
	if res.Failure != RefreshFailureIssue {
		t.Fatalf("expected issue failure, got %d", res.Failure)
	}
}

func TestRunAuthenticate(t *testing.T) {
	m := newFlowManager(t)
	lookup := principal.NewStaticLookup(principal.Record{Subject: "alice", Role: jwt.RoleUser})
	deps := AuthenticateDeps{Validate: m.Validate, Lookup: lookup}
	ctx := context.Background()

	access, _ := m.Issue("alice", jwt.RoleUser, jwt.KindAccess)
	res := RunAuthenticate(ctx, access, deps)
	if res.Failure != AuthFailureNone || res.Principal.Subject != "alice" {
		t.Fatalf("expected alice, got %d %+v", res.Failure, res.Principal)
	}
	if len(res.Principal.Authorities) != 1 || res.Principal.Authorities[0] != "ROLE_USER" {
		t.Fatalf("unexpected authorities %v", res.Principal.Authorities)
	}

	ghost, _ := m.Issue("ghost", jwt.RoleUser, jwt.KindAccess)
	if res := RunAuthenticate(ctx, ghost, deps); res.Failure != AuthFailureNotFound {
		t.Fatalf("expected not-found, got %d", res.Failure)
	}

	if res := RunAuthenticate(ctx, "", deps); res.Failure != AuthFailureToken || res.Outcome.Status != jwt.StatusEmpty {
		t.Fatalf("expected empty token failure, got %d %s", res.Failure, res.Outcome.Status)
	}

	broken := AuthenticateDeps{Validate: m.Validate, Lookup: principal.LookupFunc(func(context.Context, string) (principal.Record, error) {
		return principal.Record{}, errors.New("db down")
	})}
	if res := RunAuthenticate(ctx, access, broken); res.Failure != AuthFailureLookup {
		t.Fatalf("expected lookup failure, got %d", res.Failure)
	}

	if res := RunBuildPrincipal(ctx, "alice", AuthenticateDeps{Validate: m.Validate}); res.Failure != AuthFailureNoLookup {
		t.Fatalf("expected no-lookup failure, got %d", res.Failure)
	}
}

func TestRunStartSessionAndLogout(t *testing.T) {
	m := newFlowManager(t)
	store := refresh.NewMemoryStore(nil)
	deps := SessionDeps{IssuePair: m.IssuePair, RefreshTTL: 24 * time.Hour, Store: store}
	ctx := context.Background()

	res := RunStartSession(ctx, "alice", jwt.RoleUser, deps)
	if res.IssueErr != nil || res.StoreErr != nil {
		t.Fatalf("start session: %v %v", res.IssueErr, res.StoreErr)
	}
	rec, err := store.Get(ctx, "alice")
	if err != nil || rec.TokenValue != res.Pair.RefreshToken {
		t.Fatalf("expected persisted refresh token, got %+v %v", rec, err)
	}

	if res := RunStartSession(ctx, "", jwt.RoleUser, deps); !errors.Is(res.IssueErr, jwt.ErrInvalidClaims) {
		t.Fatalf("expected issue error for empty subject, got %v", res.IssueErr)
	}

	if err := RunLogout(ctx, "alice", deps); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := store.Get(ctx, "alice"); !errors.Is(err, refresh.ErrNotFound) {
		t.Fatalf("expected record removed, got %v", err)
	}
}
