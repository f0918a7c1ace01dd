package bearerAuth

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/bearerAuth/jwt"
)

var (
	// ErrConfiguration is returned by Build and Config.Validate for unusable settings.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrUnauthorized is matched by every *AuthError.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPrincipalNotFound is returned when a verified subject no longer resolves.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrPrincipalLookup wraps failures of the principal lookup other than absence.
	ErrPrincipalLookup = errors.New("principal lookup failed")
	// ErrRefreshTokenInvalid is matched by refresh failures caused by a non-valid token.
	ErrRefreshTokenInvalid = errors.New("refresh token invalid")
	// ErrNoPersistedToken is matched when no refresh record exists for the subject.
	ErrNoPersistedToken = errors.New("no persisted refresh token")
	// ErrRefreshSuperseded is matched when the presented refresh token was already replaced.
	ErrRefreshSuperseded = errors.New("refresh token superseded")
	// ErrStoreUnavailable is matched when the refresh store failed.
	ErrStoreUnavailable = errors.New("refresh store unavailable")
	// ErrIssue wraps token issuance failures.
	ErrIssue = errors.New("token issuance failed")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrNoRefreshStore is returned by refresh-store operations when none was configured.
	ErrNoRefreshStore = errors.New("refresh store not configured")
	// ErrNoPrincipalLookup is returned by BuildPrincipal when no lookup was configured.
	ErrNoPrincipalLookup = errors.New("principal lookup not configured")
)

// RefreshErrorKind classifies refresh failures.
type RefreshErrorKind int

const (
	// RefreshTokenInvalid means the presented token did not validate.
	RefreshTokenInvalid RefreshErrorKind = iota + 1
	// RefreshNoPersistedToken means the store has no live record for the subject.
	RefreshNoPersistedToken
	// RefreshSuperseded means the stored value differs from the presented token.
	RefreshSuperseded
	// RefreshStoreUnavailable means a store call failed.
	RefreshStoreUnavailable
	// RefreshIssueFailed means the replacement pair could not be signed.
	RefreshIssueFailed
)

func (k RefreshErrorKind) String() string {
	switch k {
	case RefreshTokenInvalid:
		return "token_invalid"
	case RefreshNoPersistedToken:
		return "no_persisted_token"
	case RefreshSuperseded:
		return "superseded"
	case RefreshStoreUnavailable:
		return "store_unavailable"
	case RefreshIssueFailed:
		return "issue_failed"
	default:
		return "unknown"
	}
}

func (k RefreshErrorKind) sentinel() error {
	switch k {
	case RefreshTokenInvalid:
		return ErrRefreshTokenInvalid
	case RefreshNoPersistedToken:
		return ErrNoPersistedToken
	case RefreshSuperseded:
		return ErrRefreshSuperseded
	case RefreshStoreUnavailable:
		return ErrStoreUnavailable
	default:
		return ErrIssue
	}
}

// RefreshError is returned by Engine.Refresh. Outcome is set for RefreshTokenInvalid.
type RefreshError struct {
	Kind    RefreshErrorKind
	Outcome jwt.Outcome
	Err     error
}

func (e *RefreshError) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Kind == RefreshTokenInvalid {
		msg = fmt.Sprintf("%s: %s", msg, e.Outcome.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *RefreshError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// AuthError is returned by Engine.Authenticate for tokens that did not validate.
type AuthError struct {
	Outcome jwt.Outcome
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnauthorized, e.Outcome.Status)
}

func (e *AuthError) Unwrap() []error {
	if e.Outcome.Err == nil {
		return []error{ErrUnauthorized, jwt.ErrTokenRejected}
	}
	return []error{ErrUnauthorized, jwt.ErrTokenRejected, e.Outcome.Err}
}
