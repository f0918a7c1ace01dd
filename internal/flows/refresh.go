package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/bearerAuth/jwt"
	"github.com/MrEthical07/bearerAuth/refresh"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureToken
	RefreshFailureNoRecord
	RefreshFailureSuperseded
	RefreshFailureStore
	RefreshFailureIssue
)

// RefreshStage names the store step at which a refresh failed.
type RefreshStage string

const (
	RefreshStageValidate RefreshStage = "validate"
	RefreshStageLookup   RefreshStage = "lookup"
	RefreshStageIssue    RefreshStage = "issue"
	RefreshStageSwap     RefreshStage = "swap"
)

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Stage   RefreshStage
	Err     error
	Outcome jwt.Outcome
	Subject string
	Role    jwt.Role
	Pair    jwt.Pair
}

// RefreshStore is the subset of refresh.Store used by the refresh flow.
type RefreshStore interface {
	Get(ctx context.Context, key string) (refresh.Record, error)
	CompareAndSwap(ctx context.Context, key, old, next string, ttl time.Duration) error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Validate   func(string) jwt.Outcome
	IssuePair  func(subject string, role jwt.Role) (jwt.Pair, error)
	Scheme     string
	RefreshTTL time.Duration
	Store      RefreshStore
}

// RunRefresh validates the presented refresh token, checks it against the persisted
// value and atomically rotates it to a freshly issued one.
func RunRefresh(ctx context.Context, rawRefresh string, deps RefreshDeps) RefreshResult {
	outcome := deps.Validate(rawRefresh)
	if !outcome.Valid() {
		return RefreshResult{
			Failure: RefreshFailureToken,
			Stage:   RefreshStageValidate,
			Err:     outcome.AsError(),
			Outcome: outcome,
		}
	}

	subject := outcome.Claims.Subject
	role := outcome.Claims.Role
	presented := normalize(rawRefresh, deps.Scheme)

	rec, err := deps.Store.Get(ctx, subject)
	if err != nil {
		return storeFailure(RefreshStageLookup, err, outcome, subject, role)
	}
	if rec.TokenValue != presented {
		return RefreshResult{
			Failure: RefreshFailureSuperseded,
			Stage:   RefreshStageLookup,
			Err:     refresh.ErrMismatch,
			Outcome: outcome,
			Subject: subject,
			Role:    role,
		}
	}

	pair, err := deps.IssuePair(subject, role)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureIssue,
			Stage:   RefreshStageIssue,
			Err:     err,
			Outcome: outcome,
			Subject: subject,
			Role:    role,
		}
	}

	if err := deps.Store.CompareAndSwap(ctx, subject, presented, pair.RefreshToken, deps.RefreshTTL); err != nil {
		return storeFailure(RefreshStageSwap, err, outcome, subject, role)
	}

	return RefreshResult{
		Failure: RefreshFailureNone,
		Outcome: outcome,
		Subject: subject,
		Role:    role,
		Pair:    pair,
	}
}

func storeFailure(stage RefreshStage, err error, outcome jwt.Outcome, subject string, role jwt.Role) RefreshResult {
	res := RefreshResult{
		Stage:   stage,
		Err:     err,
		Outcome: outcome,
		Subject: subject,
		Role:    role,
	}
	switch {
	case errors.Is(err, refresh.ErrNotFound):
		res.Failure = RefreshFailureNoRecord
	case errors.Is(err, refresh.ErrMismatch):
		res.Failure = RefreshFailureSuperseded
	default:
		res.Failure = RefreshFailureStore
	}
	return res
}

// normalize returns the presented token in its persisted form: scheme followed by the
// compact token.
func normalize(raw, scheme string) string {
	if strings.HasPrefix(raw, scheme) {
		return raw
	}
	return scheme + raw
}
