package flows

import (
	"context"

	"github.com/MrEthical07/bitguard/permission"
	"github.com/MrEthical07/bitguard/token"
)

// AuthorizeFailureKind classifies authorization denials.
type AuthorizeFailureKind int

const (
	AuthorizeFailureNone AuthorizeFailureKind = iota
	AuthorizeFailureAdminOnly
	AuthorizeFailureMissingCredential
	AuthorizeFailureInvalidCredential
	AuthorizeFailureNoModuleAccess
	AuthorizeFailureInsufficient
	AuthorizeFailureUnavailable
)

// AuthorizeResult carries the decision and everything the host needs to render or log it.
type AuthorizeResult struct {
	Failure        AuthorizeFailureKind
	ValidateReason string
	Err            error
	SubjectID      int64
	Module         string
	Grant          permission.Bits
	Required       permission.Bits
	Claims         token.Claims
}

type AuthorizeGrantStore interface {
	FindGrant(ctx context.Context, principalID int64, module string) (permission.Bits, bool, error)
}

type AuthorizeModuleCatalog interface {
	IsAdminOnly(ctx context.Context, module string) (bool, error)
}

// AuthorizeDeps captures authorization dependencies. A nil Catalog means no module is
// admin-only.
type AuthorizeDeps struct {
	Validate ValidateDeps
	Grants   AuthorizeGrantStore
	Catalog  AuthorizeModuleCatalog
}

// RunAuthorize gates one request on module with the given HTTP verb.
//
// Order: admin-only module, missing credential, credential validation (refresh tokens are
// not accepted), grant row lookup, then the capability check for the verb.
func RunAuthorize(ctx context.Context, credential, module, verb string, deps AuthorizeDeps) AuthorizeResult {
	required := permission.ForMethod(verb)
	res := AuthorizeResult{Module: module, Required: required}

	if deps.Catalog != nil {
		adminOnly, err := deps.Catalog.IsAdminOnly(ctx, module)
		if err != nil {
			res.Failure = AuthorizeFailureUnavailable
			res.Err = err
			return res
		}
		if adminOnly {
			res.Failure = AuthorizeFailureAdminOnly
			return res
		}
	}

	if credential == "" {
		res.Failure = AuthorizeFailureMissingCredential
		return res
	}

	v := RunValidate(credential, deps.Validate)
	if v.Failure != ValidateFailureNone {
		res.Failure = AuthorizeFailureInvalidCredential
		res.ValidateReason = v.Failure.Reason()
		res.Err = v.Err
		return res
	}
	if v.Claims.IsRefresh() {
		res.Failure = AuthorizeFailureInvalidCredential
		res.ValidateReason = RefreshFailureWrongKind.Reason()
		return res
	}
	res.Claims = v.Claims
	res.SubjectID = v.Claims.SubjectID

	grant, found, err := deps.Grants.FindGrant(ctx, res.SubjectID, module)
	if err != nil {
		res.Failure = AuthorizeFailureUnavailable
		res.Err = err
		return res
	}
	if !found {
		res.Failure = AuthorizeFailureNoModuleAccess
		return res
	}
	res.Grant = grant

	if required == permission.None || !permission.Has(grant, required) {
		res.Failure = AuthorizeFailureInsufficient
		return res
	}
	return res
}
