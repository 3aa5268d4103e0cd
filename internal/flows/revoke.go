package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/bitguard/store"
)

type RevokePrincipalStore interface {
	ClearRefreshToken(ctx context.Context, id int64) error
}

// RevokeDeps captures revoke and logout dependencies.
type RevokeDeps struct {
	Validate   ValidateDeps
	Principals RevokePrincipalStore
}

// RunRevoke clears the subject's refresh slot. Revoking an unknown subject is a no-op.
func RunRevoke(ctx context.Context, subject int64, deps RevokeDeps) error {
	err := deps.Principals.ClearRefreshToken(ctx, subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// LogoutFailureKind classifies logout failures.
type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureInvalid
	LogoutFailureExpired
	LogoutFailureWrongKind
	LogoutFailureStore
)

type LogoutResult struct {
	Failure        LogoutFailureKind
	ValidateReason string
	Err            error
	SubjectID      int64
}

// RunLogout validates an access token and revokes its subject's refresh chain.
func RunLogout(ctx context.Context, raw string, deps RevokeDeps) LogoutResult {
	v := RunValidate(raw, deps.Validate)
	if v.Failure != ValidateFailureNone {
		kind := LogoutFailureInvalid
		if v.Failure == ValidateFailureExpired {
			kind = LogoutFailureExpired
		}
		return LogoutResult{Failure: kind, ValidateReason: v.Failure.Reason(), Err: v.Err}
	}
	if v.Claims.IsRefresh() {
		return LogoutResult{Failure: LogoutFailureWrongKind, SubjectID: v.Claims.SubjectID}
	}

	subject := v.Claims.SubjectID
	if err := RunRevoke(ctx, subject, deps); err != nil {
		return LogoutResult{Failure: LogoutFailureStore, Err: err, SubjectID: subject}
	}
	return LogoutResult{SubjectID: subject}
}
