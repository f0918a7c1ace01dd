package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/bearerAuth/jwt"
)

// SessionStore is the subset of refresh.Store used when starting and ending sessions.
type SessionStore interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SessionDeps captures session flow dependencies.
type SessionDeps struct {
	IssuePair  func(subject string, role jwt.Role) (jwt.Pair, error)
	RefreshTTL time.Duration
	Store      SessionStore
}

// SessionResult carries the issued pair. IssueErr and StoreErr are mutually exclusive.
type SessionResult struct {
	Pair     jwt.Pair
	IssueErr error
	StoreErr error
}

// RunStartSession issues a pair and persists its refresh token, replacing any previous one.
func RunStartSession(ctx context.Context, subject string, role jwt.Role, deps SessionDeps) SessionResult {
	pair, err := deps.IssuePair(subject, role)
	if err != nil {
		return SessionResult{IssueErr: err}
	}
	if err := deps.Store.Put(ctx, subject, pair.RefreshToken, deps.RefreshTTL); err != nil {
		return SessionResult{StoreErr: err}
	}
	return SessionResult{Pair: pair}
}

// RunLogout removes the persisted refresh token of subject.
func RunLogout(ctx context.Context, subject string, deps SessionDeps) error {
	return deps.Store.Delete(ctx, subject)
}
