package bitguard

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess       = "login_success"
	auditEventLoginFailure       = "login_failure"
	auditEventLoginRateLimited   = "login_rate_limited"
	auditEventRefreshSuccess     = "refresh_success"
	auditEventRefreshRevoked     = "refresh_revoked"
	auditEventRefreshFailure     = "refresh_failure"
	auditEventRefreshRateLimited = "refresh_rate_limited"
	auditEventRevoke             = "revoke"
	auditEventLogout             = "logout"
	auditEventAuthorizeDenied    = "authorize_denied"
	auditEventGrantChanged       = "grant_changed"
)

// AuditErrorCode is the stable error label written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrTokenRevoked       AuditErrorCode = "token_revoked"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrPrincipalInactive  AuditErrorCode = "principal_inactive"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrAuthRequired       AuditErrorCode = "auth_required"
	auditErrAuthInvalid        AuditErrorCode = "auth_invalid"
	auditErrNoModuleAccess     AuditErrorCode = "no_module_access"
	auditErrInsufficient       AuditErrorCode = "insufficient_permission"
	auditErrAdminOnly          AuditErrorCode = "admin_only"
	auditErrInvalidGrant       AuditErrorCode = "invalid_grant"
	auditErrPrincipalNotFound  AuditErrorCode = "principal_not_found"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subject int64,
	module string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		SubjectID: subject,
		Module:    module,
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
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrTokenRevoked):
		return auditErrTokenRevoked
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrPrincipalInactive):
		return auditErrPrincipalInactive
	case errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrRefreshRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrAuthRequired):
		return auditErrAuthRequired
	case errors.Is(err, ErrAuthInvalid):
		return auditErrAuthInvalid
	case errors.Is(err, ErrNoModuleAccess):
		return auditErrNoModuleAccess
	case errors.Is(err, ErrInsufficientPermission):
		return auditErrInsufficient
	case errors.Is(err, ErrAdminOnlyBlocked):
		return auditErrAdminOnly
	case errors.Is(err, ErrInvalidGrant):
		return auditErrInvalidGrant
	case errors.Is(err, ErrPrincipalNotFound):
		return auditErrPrincipalNotFound
	default:
		return auditErrInternal
	}
}
