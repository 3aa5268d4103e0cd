package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/bitguard/store"
)

// LoginFailureKind classifies login failures.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureUnknownPrincipal
	LoginFailureBadPassword
	LoginFailureInactive
	LoginFailureStore
	LoginFailureIssue
)

// Reason returns the log label for k.
func (k LoginFailureKind) Reason() string {
	switch k {
	case LoginFailureNone:
		return ""
	case LoginFailureRateLimited:
		return "rate_limited"
	case LoginFailureUnknownPrincipal:
		return "unknown_principal"
	case LoginFailureBadPassword:
		return "bad_password"
	case LoginFailureInactive:
		return "principal_inactive"
	case LoginFailureStore:
		return "store_unavailable"
	case LoginFailureIssue:
		return "issue_failed"
	default:
		return "unknown"
	}
}

type LoginResult struct {
	Failure   LoginFailureKind
	Err       error
	SubjectID int64
	Pair      TokenPair
}

type LoginPrincipalStore interface {
	FindPrincipalByIdentifier(ctx context.Context, identifier string) (store.Principal, error)
	PairPrincipalStore
}

// LoginRateLimiter counts failed logins per identifier and client IP.
type LoginRateLimiter interface {
	CheckLogin(ctx context.Context, identifier, ip string) error
	IncrementLogin(ctx context.Context, identifier, ip string) error
	ResetLogin(ctx context.Context, identifier, ip string) error
}

// LoginDeps captures login dependencies. DummyHash, when set, is verified against on
// unknown identifiers so both failure paths cost one hash verification.
type LoginDeps struct {
	Issue          IssueDeps
	Principals     LoginPrincipalStore
	RateLimiter    LoginRateLimiter
	VerifyPassword func(plain, encoded string) (bool, error)
	DummyHash      string
	ClientIP       func(context.Context) string
	Warn           func(string, ...any)
}

// RunLogin authenticates identifier/password and issues a persisted token pair.
func RunLogin(ctx context.Context, identifier, password string, deps LoginDeps) LoginResult {
	ip := ""
	if deps.ClientIP != nil {
		ip = deps.ClientIP(ctx)
	}
	warn := deps.Warn
	if warn == nil {
		warn = func(string, ...any) {}
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckLogin(ctx, identifier, ip); err != nil {
			return LoginResult{Failure: LoginFailureRateLimited, Err: err}
		}
	}

	fail := func(kind LoginFailureKind, subject int64, err error) LoginResult {
		if deps.RateLimiter != nil {
			if incErr := deps.RateLimiter.IncrementLogin(ctx, identifier, ip); incErr != nil {
				warn("bitguard: login limiter increment failed", "error", incErr)
			}
		}
		return LoginResult{Failure: kind, Err: err, SubjectID: subject}
	}

	principal, err := deps.Principals.FindPrincipalByIdentifier(ctx, identifier)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return LoginResult{Failure: LoginFailureStore, Err: err}
		}
		if deps.DummyHash != "" {
			_, _ = deps.VerifyPassword(password, deps.DummyHash)
		}
		return fail(LoginFailureUnknownPrincipal, 0, err)
	}

	ok, err := deps.VerifyPassword(password, principal.PasswordHash)
	if err != nil || !ok {
		return fail(LoginFailureBadPassword, principal.ID, err)
	}
	if !principal.Active {
		return LoginResult{Failure: LoginFailureInactive, SubjectID: principal.ID}
	}

	pair, err := RunIssuePair(ctx, principal.ID, IssuePairDeps{Issue: deps.Issue, Principals: deps.Principals})
	if err != nil {
		kind := LoginFailureIssue
		if errors.Is(err, store.ErrUnavailable) || errors.Is(err, store.ErrNotFound) {
			kind = LoginFailureStore
		}
		return LoginResult{Failure: kind, Err: err, SubjectID: principal.ID}
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.ResetLogin(ctx, identifier, ip); err != nil {
			warn("bitguard: login limiter reset failed", "error", err)
		}
	}
	return LoginResult{SubjectID: principal.ID, Pair: pair}
}
