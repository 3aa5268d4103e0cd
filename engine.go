package bitguard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/bitguard/internal/audit"
	"github.com/MrEthical07/bitguard/internal/flows"
	"github.com/MrEthical07/bitguard/internal/rate"
	"github.com/MrEthical07/bitguard/password"
	"github.com/MrEthical07/bitguard/store"
	"github.com/MrEthical07/bitguard/token"
)

// Engine is the token lifecycle manager and authorization entry point. Build one with
// Builder; all methods are safe for concurrent use.
type Engine struct {
	config      Config
	codec       *token.Codec
	hasher      *password.Hasher
	flow        flows.Service
	principals  store.PrincipalStore
	grants      store.GrantStore
	catalog     store.ModuleCatalog
	rateLimiter *rate.Limiter
	audit       *audit.Dispatcher
	metrics     *Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// Close drains pending audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n uint64) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Add(id, n)
}

func (e *Engine) ready() error {
	if e == nil || !e.flow.Initialized() {
		return ErrEngineNotReady
	}
	return nil
}

/*
====================================
ISSUANCE
====================================
*/

// IssueAccess signs an access token for subject. A ttl <= 0 uses Token.AccessTTL; extra
// claims are flattened into the payload and must not use reserved claim names.
func (e *Engine) IssueAccess(ctx context.Context, subject int64, ttl time.Duration, extra map[string]any) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	raw, _, err := flows.IssueAccess(ctx, subject, ttl, extra, e.flow.IssueDeps())
	if err != nil {
		return "", e.issueError(err)
	}
	e.metricInc(MetricTokenIssued)
	return raw, nil
}

// IssueRefresh signs a refresh token for subject. It does not persist the token: a
// refresh token is only honoured once the caller stores it in the subject's slot.
// IssueTokenPair does both.
func (e *Engine) IssueRefresh(_ context.Context, subject int64, ttl time.Duration) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	raw, _, err := flows.IssueRefresh(subject, ttl, e.flow.IssueDeps())
	if err != nil {
		return "", e.issueError(err)
	}
	e.metricInc(MetricTokenIssued)
	return raw, nil
}

// IssueTokenPair issues an access and refresh token and stores the refresh token as the
// subject's slot, replacing and so invalidating any previous one.
func (e *Engine) IssueTokenPair(ctx context.Context, subject int64) (TokenPair, error) {
	if err := e.ready(); err != nil {
		return TokenPair{}, err
	}
	pair, err := e.flow.IssuePair(ctx, subject)
	if err != nil {
		return TokenPair{}, e.issueError(err)
	}
	e.metricAdd(MetricTokenIssued, 2)
	return TokenPair(pair), nil
}

func (e *Engine) issueError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return wrap(ErrPrincipalNotFound, err)
	case errors.Is(err, store.ErrUnavailable):
		e.logger.Warn("bitguard: token issuance store failure", "error", err)
		return wrap(ErrStoreUnavailable, err)
	default:
		return err
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate verifies signature and expiry of any bitguard token. The error is
// ErrTokenExpired for expired tokens and ErrInvalidToken otherwise; the codec cause is
// wrapped as well.
func (e *Engine) Validate(_ context.Context, raw string) (*AuthResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	res := e.flow.Validate(raw)
	if res.Failure != flows.ValidateFailureNone {
		return nil, e.validateError(res)
	}
	e.metricInc(MetricValidateSuccess)
	return &AuthResult{SubjectID: res.Claims.SubjectID, Claims: res.Claims}, nil
}

// ValidateAccess is Validate restricted to access tokens.
func (e *Engine) ValidateAccess(ctx context.Context, raw string) (*AuthResult, error) {
	result, err := e.Validate(ctx, raw)
	if err != nil {
		return nil, err
	}
	if result.Claims.IsRefresh() {
		e.logger.Debug("bitguard: token rejected", "reason", flows.RefreshFailureWrongKind.Reason())
		return nil, ErrInvalidToken
	}
	return result, nil
}

func (e *Engine) validateError(res flows.ValidateResult) error {
	e.logger.Debug("bitguard: token rejected", "reason", res.Failure.Reason())
	if res.Failure == flows.ValidateFailureExpired {
		e.metricInc(MetricValidateExpired)
		return wrap(ErrTokenExpired, res.Err)
	}
	e.metricInc(MetricValidateInvalid)
	return wrap(ErrInvalidToken, res.Err)
}

/*
====================================
REFRESH / REVOKE
====================================
*/

// Refresh exchanges the subject's current refresh token for a new pair and rotates the
// slot. A token that is not the current slot value, including the loser of a concurrent
// refresh, fails with ErrTokenRevoked.
func (e *Engine) Refresh(ctx context.Context, raw string) (TokenPair, error) {
	if err := e.ready(); err != nil {
		return TokenPair{}, err
	}

	res := e.flow.Refresh(ctx, raw)
	if res.Failure == flows.RefreshFailureNone {
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, res.SubjectID, "", nil, nil)
		return TokenPair(res.Pair), nil
	}

	err := e.refreshError(res)
	reason := res.Failure.Reason()
	if res.ValidateReason != "" {
		reason = res.ValidateReason
	}
	subjectAttr := slog.Int64("subject_id", res.SubjectID)
	if res.SubjectID == 0 {
		// Unverified; only for correlating rejected tokens in logs.
		if claimed, ok := token.PeekSubject(raw); ok {
			subjectAttr = slog.Int64("claimed_subject_id", claimed)
		}
	}
	e.logger.Debug("bitguard: refresh rejected", "reason", reason, subjectAttr)

	eventType := auditEventRefreshFailure
	switch {
	case errors.Is(err, ErrTokenRevoked):
		eventType = auditEventRefreshRevoked
		e.metricInc(MetricRefreshRevoked)
	case errors.Is(err, ErrRefreshRateLimited):
		eventType = auditEventRefreshRateLimited
		e.metricInc(MetricRefreshRateLimited)
	default:
		e.metricInc(MetricRefreshFailure)
	}
	e.emitAudit(ctx, eventType, false, res.SubjectID, "", err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return TokenPair{}, err
}

func (e *Engine) refreshError(res flows.RefreshResult) error {
	switch {
	case res.Failure == flows.RefreshFailureExpired:
		return wrap(ErrTokenExpired, res.Err)
	case res.Failure == flows.RefreshFailureInvalid, res.Failure == flows.RefreshFailureWrongKind:
		return wrap(ErrInvalidToken, res.Err)
	case res.Failure.Revoked():
		return ErrTokenRevoked
	case res.Failure == flows.RefreshFailurePrincipalInactive:
		return ErrPrincipalInactive
	case res.Failure == flows.RefreshFailureRateLimited:
		if errors.Is(res.Err, rate.ErrRateLimited) {
			return ErrRefreshRateLimited
		}
		e.logger.Warn("bitguard: refresh limiter unavailable", "error", res.Err)
		return wrap(ErrStoreUnavailable, res.Err)
	case res.Failure == flows.RefreshFailureStore:
		e.logger.Warn("bitguard: refresh store failure", "error", res.Err)
		return wrap(ErrStoreUnavailable, res.Err)
	default:
		return e.issueError(res.Err)
	}
}

// Revoke clears the subject's refresh slot. Access tokens already issued stay valid
// until they expire. Revoking an unknown subject is not an error.
func (e *Engine) Revoke(ctx context.Context, subject int64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.flow.Revoke(ctx, subject); err != nil {
		e.logger.Warn("bitguard: revoke store failure", "error", err, "subject_id", subject)
		err = wrap(ErrStoreUnavailable, err)
		e.emitAudit(ctx, auditEventRevoke, false, subject, "", err, nil)
		return err
	}
	e.metricInc(MetricRevoke)
	e.emitAudit(ctx, auditEventRevoke, true, subject, "", nil, nil)
	return nil
}

// Logout validates an access token and revokes its subject's refresh chain.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	if err := e.ready(); err != nil {
		return err
	}

	res := e.flow.Logout(ctx, accessToken)
	var err error
	switch res.Failure {
	case flows.LogoutFailureNone:
		e.metricInc(MetricRevoke)
		e.emitAudit(ctx, auditEventLogout, true, res.SubjectID, "", nil, nil)
		return nil
	case flows.LogoutFailureExpired:
		err = wrap(ErrTokenExpired, res.Err)
	case flows.LogoutFailureInvalid, flows.LogoutFailureWrongKind:
		err = wrap(ErrInvalidToken, res.Err)
	default:
		e.logger.Warn("bitguard: logout store failure", "error", res.Err, "subject_id", res.SubjectID)
		err = wrap(ErrStoreUnavailable, res.Err)
	}
	e.emitAudit(ctx, auditEventLogout, false, res.SubjectID, "", err, nil)
	return err
}

/*
====================================
LOGIN
====================================
*/

// Login verifies identifier and password and issues a persisted pair. Unknown
// identifiers and wrong passwords both fail with ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, identifier, password string) (TokenPair, error) {
	if err := e.ready(); err != nil {
		return TokenPair{}, err
	}

	res := e.flow.Login(ctx, identifier, password)
	if res.Failure == flows.LoginFailureNone {
		e.metricInc(MetricLoginSuccess)
		e.metricAdd(MetricTokenIssued, 2)
		e.emitAudit(ctx, auditEventLoginSuccess, true, res.SubjectID, "", nil, nil)
		return TokenPair(res.Pair), nil
	}

	var err error
	eventType := auditEventLoginFailure
	switch res.Failure {
	case flows.LoginFailureRateLimited:
		if errors.Is(res.Err, rate.ErrRateLimited) {
			err = ErrLoginRateLimited
			eventType = auditEventLoginRateLimited
			e.metricInc(MetricLoginRateLimited)
		} else {
			e.logger.Warn("bitguard: login limiter unavailable", "error", res.Err)
			err = wrap(ErrStoreUnavailable, res.Err)
			e.metricInc(MetricLoginFailure)
		}
	case flows.LoginFailureUnknownPrincipal, flows.LoginFailureBadPassword:
		err = ErrInvalidCredentials
		e.metricInc(MetricLoginFailure)
	case flows.LoginFailureInactive:
		err = ErrPrincipalInactive
		e.metricInc(MetricLoginFailure)
	case flows.LoginFailureStore:
		e.logger.Warn("bitguard: login store failure", "error", res.Err)
		err = wrap(ErrStoreUnavailable, res.Err)
		e.metricInc(MetricLoginFailure)
	default:
		err = res.Err
		e.metricInc(MetricLoginFailure)
	}

	e.logger.Debug("bitguard: login rejected", "reason", res.Failure.Reason())
	e.emitAudit(ctx, eventType, false, res.SubjectID, "", err, func() map[string]string {
		return map[string]string{"reason": res.Failure.Reason()}
	})
	return TokenPair{}, err
}

// HashPassword returns the argon2id PHC encoding of plain using the engine's
// parameters. Use it when provisioning principals.
func (e *Engine) HashPassword(plain string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	return e.hasher.Hash(plain)
}
