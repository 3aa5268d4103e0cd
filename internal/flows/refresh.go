package flows

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/MrEthical07/bitguard/store"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureInvalid
	RefreshFailureExpired
	RefreshFailureWrongKind
	RefreshFailureRateLimited
	RefreshFailurePrincipalMissing
	RefreshFailurePrincipalInactive
	RefreshFailureSlotMismatch
	RefreshFailureCASLost
	RefreshFailureIssue
	RefreshFailureStore
)

// Reason returns the log label for k.
func (k RefreshFailureKind) Reason() string {
	switch k {
	case RefreshFailureNone:
		return ""
	case RefreshFailureInvalid:
		return "invalid_token"
	case RefreshFailureExpired:
		return "token_expired"
	case RefreshFailureWrongKind:
		return "wrong_kind"
	case RefreshFailureRateLimited:
		return "rate_limited"
	case RefreshFailurePrincipalMissing:
		return "principal_missing"
	case RefreshFailurePrincipalInactive:
		return "principal_inactive"
	case RefreshFailureSlotMismatch:
		return "slot_mismatch"
	case RefreshFailureCASLost:
		return "cas_lost"
	case RefreshFailureIssue:
		return "issue_failed"
	case RefreshFailureStore:
		return "store_unavailable"
	default:
		return "unknown"
	}
}

// Revoked reports whether k is indistinguishable, to the caller, from a revoked chain.
func (k RefreshFailureKind) Revoked() bool {
	switch k {
	case RefreshFailurePrincipalMissing, RefreshFailureSlotMismatch, RefreshFailureCASLost:
		return true
	default:
		return false
	}
}

// RefreshResult carries either the rotated pair or failure metadata.
type RefreshResult struct {
	Failure        RefreshFailureKind
	ValidateReason string
	Err            error
	SubjectID      int64
	Pair           TokenPair
}

type RefreshRateLimiter interface {
	CheckRefresh(ctx context.Context, subject int64) error
}

type RefreshPrincipalStore interface {
	FindPrincipalByID(ctx context.Context, id int64) (store.Principal, error)
	SwapRefreshToken(ctx context.Context, id int64, current, next string, expiresAt time.Time) (bool, error)
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Validate    ValidateDeps
	Issue       IssueDeps
	Principals  RefreshPrincipalStore
	RateLimiter RefreshRateLimiter
}

// RunRefresh exchanges a refresh token for a new pair.
//
// The presented token must verify, be of refresh kind and equal the subject's stored slot.
// The new refresh token is written with a compare-and-swap guarded on the presented value,
// so of two concurrent calls with the same token at most one succeeds.
func RunRefresh(ctx context.Context, raw string, deps RefreshDeps) RefreshResult {
	v := RunValidate(raw, deps.Validate)
	if v.Failure != ValidateFailureNone {
		kind := RefreshFailureInvalid
		if v.Failure == ValidateFailureExpired {
			kind = RefreshFailureExpired
		}
		return RefreshResult{Failure: kind, ValidateReason: v.Failure.Reason(), Err: v.Err, SubjectID: v.Claims.SubjectID}
	}

	claims := v.Claims
	subject := claims.SubjectID
	if !claims.IsRefresh() {
		return RefreshResult{Failure: RefreshFailureWrongKind, SubjectID: subject}
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckRefresh(ctx, subject); err != nil {
			return RefreshResult{Failure: RefreshFailureRateLimited, Err: err, SubjectID: subject}
		}
	}

	principal, err := deps.Principals.FindPrincipalByID(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RefreshResult{Failure: RefreshFailurePrincipalMissing, Err: err, SubjectID: subject}
		}
		return RefreshResult{Failure: RefreshFailureStore, Err: err, SubjectID: subject}
	}
	if !principal.Active {
		return RefreshResult{Failure: RefreshFailurePrincipalInactive, SubjectID: subject}
	}
	if !principal.HasRefreshSlot() ||
		subtle.ConstantTimeCompare([]byte(principal.RefreshToken), []byte(raw)) != 1 {
		return RefreshResult{Failure: RefreshFailureSlotMismatch, SubjectID: subject}
	}

	pair, err := issuePair(ctx, subject, deps.Issue)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, SubjectID: subject}
	}

	swapped, err := deps.Principals.SwapRefreshToken(ctx, subject, raw, pair.RefreshToken, pair.RefreshExpiresAt)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RefreshResult{Failure: RefreshFailurePrincipalMissing, Err: err, SubjectID: subject}
		}
		return RefreshResult{Failure: RefreshFailureStore, Err: err, SubjectID: subject}
	}
	if !swapped {
		return RefreshResult{Failure: RefreshFailureCASLost, SubjectID: subject}
	}

	return RefreshResult{SubjectID: subject, Pair: pair}
}
