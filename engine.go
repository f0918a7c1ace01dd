package bearerAuth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/bearerAuth/internal/audit"
	"github.com/MrEthical07/bearerAuth/internal/flows"
	"github.com/MrEthical07/bearerAuth/jwt"
	"github.com/MrEthical07/bearerAuth/principal"
)

// Engine issues, validates and rotates tokens for one signing key.
//
// Engine instances are built once through Builder and are safe for concurrent use.
type Engine struct {
	config     Config
	jwtManager *jwt.Manager
	store      RefreshStore
	lookup     PrincipalLookup
	audit      *internalaudit.Dispatcher
	metrics    *Metrics
	logger     *slog.Logger
	now        func() time.Time
	flows      flows.Service
}

// Close describes the close operation and its observable behavior.
//
// Close flushes queued audit events. The Engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot returns an empty snapshot for a nil Engine.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.jwtManager != nil && e.flows.Initialized()
}

// Issue describes the issue operation and its observable behavior.
//
// Issue signs a token of kind for subject and returns it with the configured scheme
// prefix. Empty subjects and unknown roles wrap jwt.ErrInvalidClaims.
func (e *Engine) Issue(subject string, role jwt.Role, kind jwt.Kind) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}

	token, err := e.jwtManager.Issue(subject, role, kind)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.logger.Info("token issue refused", "subject", subject, "kind", kind.String(), "error", err)
		return "", fmt.Errorf("%w: %w", ErrIssue, err)
	}

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(context.Background(), auditEventTokenIssued, true, subject, kind.String(), nil, nil)
	return token, nil
}

// IssueAll issues an access and a refresh token for subject. Neither is persisted; use
// StartSession to also record the refresh token.
func (e *Engine) IssueAll(subject string, role jwt.Role) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}

	pair, err := e.jwtManager.IssuePair(subject, role)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.logger.Info("token issue refused", "subject", subject, "error", err)
		return TokenPair{}, fmt.Errorf("%w: %w", ErrIssue, err)
	}

	e.metricInc(MetricIssueSuccess)
	e.metricInc(MetricIssueSuccess)
	e.emitAudit(context.Background(), auditEventTokenIssued, true, subject, "pair", nil, nil)
	return pair, nil
}

// Validate describes the validate operation and its observable behavior.
//
// Validate verifies raw, with or without the scheme prefix, and returns the tagged
// outcome. Only an outcome whose Valid method reports true carries claims. Validate
// performs no I/O. A nil or unbuilt Engine reports StatusMalformed with ErrEngineNotReady.
func (e *Engine) Validate(raw string) jwt.Outcome {
	if !e.ready() {
		return jwt.Outcome{Status: jwt.StatusMalformed, Err: ErrEngineNotReady}
	}

	start := time.Now()
	outcome := e.jwtManager.Validate(raw)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}

	switch outcome.Status {
	case jwt.StatusValid:
		e.metricInc(MetricValidateValid)
		return outcome
	case jwt.StatusEmpty:
		e.metricInc(MetricValidateEmpty)
	case jwt.StatusMalformed:
		e.metricInc(MetricValidateMalformed)
	case jwt.StatusUnsupported:
		e.metricInc(MetricValidateUnsupported)
	case jwt.StatusExpired:
		e.metricInc(MetricValidateExpired)
	}
	e.logger.Info("token rejected", "reason", outcome.Status.String())
	return outcome
}

// ExtractSubject returns the subject of a valid token. Any other outcome is returned as
// an error matching jwt.ErrTokenRejected.
func (e *Engine) ExtractSubject(raw string) (string, error) {
	outcome := e.Validate(raw)
	if !outcome.Valid() {
		return "", outcome.AsError()
	}
	return outcome.Claims.Subject, nil
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh validates rawRefresh, compares it with the token persisted for its subject and
// atomically replaces the persisted value with a newly issued refresh token. Failures are
// returned as *RefreshError. Of several concurrent calls presenting the same token at most
// one succeeds; the others fail with ErrRefreshSuperseded.
func (e *Engine) Refresh(ctx context.Context, rawRefresh string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}
	if e.store == nil {
		return TokenPair{}, ErrNoRefreshStore
	}

	res := e.flows.Refresh(ctx, rawRefresh)
	if res.Failure == flows.RefreshFailureNone {
		e.metricInc(MetricRefreshSuccess)
		e.metricInc(MetricIssueSuccess)
		e.metricInc(MetricIssueSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, res.Subject, jwt.KindRefresh.String(), nil, nil)
		return res.Pair, nil
	}

	rerr := &RefreshError{Outcome: res.Outcome, Err: res.Err}
	switch res.Failure {
	case flows.RefreshFailureToken:
		rerr.Kind = RefreshTokenInvalid
		rerr.Err = nil
		e.metricInc(MetricRefreshTokenInvalid)
	case flows.RefreshFailureNoRecord:
		rerr.Kind = RefreshNoPersistedToken
		e.metricInc(MetricRefreshNoPersistedToken)
		e.logger.Info("refresh rejected", "reason", rerr.Kind.String(), "subject", res.Subject, "stage", string(res.Stage))
	case flows.RefreshFailureSuperseded:
		rerr.Kind = RefreshSuperseded
		e.metricInc(MetricRefreshSuperseded)
		e.logger.Warn("superseded refresh token presented", "subject", res.Subject, "stage", string(res.Stage))
	case flows.RefreshFailureIssue:
		rerr.Kind = RefreshIssueFailed
		e.metricInc(MetricIssueFailure)
		e.logger.Error("refresh issue failed", "subject", res.Subject, "error", res.Err)
	default:
		rerr.Kind = RefreshStoreUnavailable
		e.metricInc(MetricRefreshStoreUnavailable)
		e.logger.Error("refresh store failed", "subject", res.Subject, "stage", string(res.Stage), "error", res.Err)
	}

	e.emitAudit(ctx, auditEventRefreshRejected, false, res.Subject, jwt.KindRefresh.String(), rerr, func() map[string]string {
		md := map[string]string{"reason": rerr.Kind.String()}
		if res.Stage != "" {
			md["stage"] = string(res.Stage)
		}
		if rerr.Kind == RefreshTokenInvalid {
			md["status"] = res.Outcome.Status.String()
		}
		return md
	})
	return TokenPair{}, rerr
}

// StartSession issues a pair for subject and persists its refresh token, replacing any
// token previously stored for subject.
func (e *Engine) StartSession(ctx context.Context, subject string, role jwt.Role) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}
	if e.store == nil {
		return TokenPair{}, ErrNoRefreshStore
	}

	res := e.flows.StartSession(ctx, subject, role)
	if res.IssueErr != nil {
		e.metricInc(MetricIssueFailure)
		return TokenPair{}, fmt.Errorf("%w: %w", ErrIssue, res.IssueErr)
	}
	if res.StoreErr != nil {
		err := fmt.Errorf("%w: %w", ErrStoreUnavailable, res.StoreErr)
		e.logger.Error("session store failed", "subject", subject, "error", res.StoreErr)
		e.emitAudit(ctx, auditEventSessionStarted, false, subject, "", err, nil)
		return TokenPair{}, err
	}

	e.metricInc(MetricIssueSuccess)
	e.metricInc(MetricIssueSuccess)
	e.metricInc(MetricSessionStarted)
	e.emitAudit(ctx, auditEventSessionStarted, true, subject, "", nil, nil)
	return res.Pair, nil
}

// Logout removes the refresh token persisted for subject. Issued access tokens stay
// valid until they expire.
func (e *Engine) Logout(ctx context.Context, subject string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if e.store == nil {
		return ErrNoRefreshStore
	}

	if err := e.flows.Logout(ctx, subject); err != nil {
		err = fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		e.logger.Error("logout failed", "subject", subject, "error", err)
		e.emitAudit(ctx, auditEventLogout, false, subject, "", err, nil)
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, subject, "", nil, nil)
	return nil
}

// BuildPrincipal resolves subject through the configured PrincipalLookup. A missing
// principal is ErrPrincipalNotFound; any other lookup failure wraps ErrPrincipalLookup.
func (e *Engine) BuildPrincipal(ctx context.Context, subject string) (*Principal, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.BuildPrincipal(ctx, subject)
	if err := e.principalError(ctx, res, subject); err != nil {
		return nil, err
	}
	return toPrincipal(res.Principal, nil), nil
}

// Authenticate describes the authenticate operation and its observable behavior.
//
// Authenticate validates an access token and resolves its subject. Tokens that do not
// validate yield *AuthError; the principal is never built for them.
func (e *Engine) Authenticate(ctx context.Context, rawAccess string) (*Principal, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := e.flows.Authenticate(ctx, rawAccess)
	if res.Failure == flows.AuthFailureToken {
		err := &AuthError{Outcome: res.Outcome}
		e.emitAudit(ctx, auditEventAuthFailure, false, "", jwt.KindAccess.String(), err, func() map[string]string {
			return map[string]string{"status": res.Outcome.Status.String()}
		})
		return nil, err
	}

	subject := ""
	if res.Outcome.Claims != nil {
		subject = res.Outcome.Claims.Subject
	}
	if err := e.principalError(ctx, res, subject); err != nil {
		return nil, err
	}
	return toPrincipal(res.Principal, res.Outcome.Claims), nil
}

func (e *Engine) principalError(ctx context.Context, res flows.AuthenticateResult, subject string) error {
	var err error
	switch res.Failure {
	case flows.AuthFailureNone:
		return nil
	case flows.AuthFailureNoLookup:
		return ErrNoPrincipalLookup
	case flows.AuthFailureNotFound:
		e.metricInc(MetricPrincipalNotFound)
		e.logger.Info("principal not found", "subject", subject)
		err = fmt.Errorf("%w: %w", ErrPrincipalNotFound, res.Err)
	default:
		e.logger.Error("principal lookup failed", "subject", subject, "error", res.Err)
		err = fmt.Errorf("%w: %w", ErrPrincipalLookup, res.Err)
	}

	e.emitAudit(ctx, auditEventAuthFailure, false, subject, jwt.KindAccess.String(), err, nil)
	return err
}

func toPrincipal(rec principal.Record, claims *jwt.Claims) *Principal {
	p := &Principal{
		Subject:     rec.Subject,
		Role:        rec.Role,
		Authorities: rec.Authorities,
	}
	if exp := claims.ExpiresAtTime(); !exp.IsZero() {
		p.ExpiresAt = exp.Unix()
	}
	return p
}

func (e *Engine) flowDeps() flows.Deps {
	deps := flows.Deps{
		Refresh: flows.RefreshDeps{
			Validate:   e.Validate,
			IssuePair:  e.jwtManager.IssuePair,
			Scheme:     e.jwtManager.Scheme(),
			RefreshTTL: e.jwtManager.TTL(jwt.KindRefresh),
		},
		Authenticate: flows.AuthenticateDeps{
			Validate: e.Validate,
			Lookup:   e.lookup,
		},
		Session: flows.SessionDeps{
			IssuePair:  e.jwtManager.IssuePair,
			RefreshTTL: e.jwtManager.TTL(jwt.KindRefresh),
		},
	}
	if e.store != nil {
		deps.Refresh.Store = e.store
		deps.Session.Store = e.store
	}
	return deps
}
