package bitguard

import (
	"context"
	"time"

	"github.com/MrEthical07/bitguard/internal/flows"
)

// Authorize gates one request: credential is the bearer token (empty when absent),
// module the resource module and verb the HTTP method. The verb is matched without
// regard to case; any verb outside GET, HEAD, OPTIONS, POST, PUT, PATCH and DELETE
// maps to no capability and is always denied.
//
// Denials return a *AuthError. A module flagged admin-only is denied before the
// credential is looked at. A subject with no grant row gets CodeNoModuleAccess; a row
// without the bit the verb needs, including a zero row, gets CodeInsufficientPermission.
// Store failures deny with CodeUnavailable.
func (e *Engine) Authorize(ctx context.Context, credential, module, verb string) (*AuthResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	var started time.Time
	if e.metrics.LatencyEnabled() {
		started = time.Now()
		defer func() {
			e.metrics.Observe(MetricAuthorizeLatency, time.Since(started))
		}()
	}

	res := e.flow.Authorize(ctx, credential, module, verb)
	if res.Failure == flows.AuthorizeFailureNone {
		e.metricInc(MetricAuthorizeAllowed)
		return &AuthResult{
			SubjectID: res.SubjectID,
			Module:    res.Module,
			Grant:     res.Grant,
			Required:  res.Required,
			Claims:    res.Claims,
		}, nil
	}

	authErr := e.authorizeError(res)
	e.logger.Debug("bitguard: authorize denied",
		"code", authErr.Code,
		"module", module,
		"verb", verb,
		"subject_id", res.SubjectID,
		"reason", res.ValidateReason,
	)
	e.emitAudit(ctx, auditEventAuthorizeDenied, false, res.SubjectID, module, authErr, func() map[string]string {
		md := map[string]string{"verb": verb, "code": authErr.Code}
		if res.ValidateReason != "" {
			md["reason"] = res.ValidateReason
		}
		return md
	})
	return nil, authErr
}

func (e *Engine) authorizeError(res flows.AuthorizeResult) *AuthError {
	switch res.Failure {
	case flows.AuthorizeFailureAdminOnly:
		e.metricInc(MetricAuthorizeAdminOnly)
		return newAuthError(CodeAdminOnly, res.Module, res.Required, ErrAdminOnlyBlocked)
	case flows.AuthorizeFailureMissingCredential:
		e.metricInc(MetricAuthorizeAuthRequired)
		return newAuthError(CodeAuthRequired, res.Module, res.Required, ErrAuthRequired)
	case flows.AuthorizeFailureInvalidCredential:
		e.metricInc(MetricAuthorizeAuthInvalid)
		if res.ValidateReason == flows.ValidateFailureExpired.Reason() {
			e.metricInc(MetricValidateExpired)
		} else {
			e.metricInc(MetricValidateInvalid)
		}
		return newAuthError(CodeAuthInvalid, res.Module, res.Required, ErrAuthInvalid)
	case flows.AuthorizeFailureNoModuleAccess:
		e.metricInc(MetricAuthorizeNoModuleAccess)
		return newAuthError(CodeNoModuleAccess, res.Module, res.Required, ErrNoModuleAccess)
	case flows.AuthorizeFailureInsufficient:
		e.metricInc(MetricAuthorizeInsufficient)
		return newAuthError(CodeInsufficientPermission, res.Module, res.Required, ErrInsufficientPermission)
	default:
		e.metricInc(MetricAuthorizeUnavailable)
		e.logger.Warn("bitguard: authorize store failure", "error", res.Err, "module", res.Module)
		return newAuthError(CodeUnavailable, res.Module, res.Required, wrap(ErrStoreUnavailable, res.Err))
	}
}
