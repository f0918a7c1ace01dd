package bearerAuth

import (
	"context"
	"errors"

	"github.com/MrEthical07/bearerAuth/jwt"
)

const (
	auditEventTokenIssued     = "token_issued"
	auditEventRefreshSuccess  = "refresh_success"
	auditEventRefreshRejected = "refresh_rejected"
	auditEventAuthFailure     = "auth_failure"
	auditEventSessionStarted  = "session_started"
	auditEventLogout          = "logout"
)

// AuditErrorCode is the stable error label written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrUnauthorized      AuditErrorCode = "unauthorized"
	auditErrInvalidToken      AuditErrorCode = "invalid_token"
	auditErrNoPersistedToken  AuditErrorCode = "no_persisted_token"
	auditErrRefreshSuperseded AuditErrorCode = "refresh_superseded"
	auditErrPrincipalNotFound AuditErrorCode = "principal_not_found"
	auditErrUnavailable       AuditErrorCode = "backend_unavailable"
	auditErrIssue             AuditErrorCode = "issue_failed"
	auditErrInternal          AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subject string,
	tokenKind string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		Subject:   subject,
		TokenKind: tokenKind,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrRefreshSuperseded):
		return auditErrRefreshSuperseded
	case errors.Is(err, ErrNoPersistedToken):
		return auditErrNoPersistedToken
	case errors.Is(err, ErrRefreshTokenInvalid),
		errors.Is(err, jwt.ErrTokenRejected):
		return auditErrInvalidToken
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrPrincipalNotFound):
		return auditErrPrincipalNotFound
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrPrincipalLookup):
		return auditErrUnavailable
	case errors.Is(err, ErrIssue):
		return auditErrIssue
	default:
		return auditErrInternal
	}
}
