package bitguard

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/bitguard/permission"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures, bad payloads and tokens of
	// the wrong kind.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for correctly signed tokens past expires_at.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned by Refresh when the presented token is not the subject's
	// current refresh slot.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrAuthRequired is returned by Authorize when no credential is presented.
	ErrAuthRequired = errors.New("authentication required")
	// ErrAuthInvalid is returned by Authorize when the credential does not validate.
	ErrAuthInvalid = errors.New("authentication invalid")
	// ErrNoModuleAccess is returned when the subject has no grant row for the module.
	ErrNoModuleAccess = errors.New("no module access")
	// ErrInsufficientPermission is returned when the grant lacks the bit the verb needs.
	ErrInsufficientPermission = errors.New("insufficient permission")
	// ErrAdminOnlyBlocked is returned for modules flagged admin-only.
	ErrAdminOnlyBlocked = errors.New("module is admin only")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPrincipalInactive  = errors.New("principal inactive")
	ErrPrincipalNotFound  = errors.New("principal not found")
	ErrLoginRateLimited   = errors.New("login rate limited")
	ErrRefreshRateLimited = errors.New("refresh rate limited")

	// ErrStoreUnavailable wraps backend failures from the principal or grant store.
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrEngineNotReady   = errors.New("engine not initialized")
	ErrInvalidGrant     = errors.New("invalid grant")
)

// Authorization error codes carried by AuthError.
const (
	CodeAuthRequired           = "auth_required"
	CodeAuthInvalid            = "auth_invalid"
	CodeNoModuleAccess         = "no_module_access"
	CodeInsufficientPermission = "insufficient_permission"
	CodeAdminOnly              = "admin_only"
	CodeUnavailable            = "unavailable"
)

// AuthError is the error Authorize returns on denial. Err is one of the Err* sentinels
// above, so errors.Is works against both the AuthError and the sentinel.
type AuthError struct {
	Code     string
	Status   int
	Module   string
	Required permission.Bits
	Err      error
}

func (e *AuthError) Error() string {
	switch e.Code {
	case CodeInsufficientPermission:
		return fmt.Sprintf("%s: module %q requires %s", e.Err, e.Module, permission.Name(e.Required))
	case CodeNoModuleAccess, CodeAdminOnly:
		return fmt.Sprintf("%s: %q", e.Err, e.Module)
	default:
		return e.Err.Error()
	}
}

func (e *AuthError) Unwrap() error { return e.Err }

func newAuthError(code string, module string, required permission.Bits, err error) *AuthError {
	return &AuthError{
		Code:     code,
		Status:   statusForCode(code),
		Module:   module,
		Required: required,
		Err:      err,
	}
}

func statusForCode(code string) int {
	switch code {
	case CodeAuthRequired, CodeAuthInvalid:
		return http.StatusUnauthorized
	case CodeNoModuleAccess, CodeInsufficientPermission, CodeAdminOnly:
		return http.StatusForbidden
	default:
		return http.StatusServiceUnavailable
	}
}

// StatusOf maps an engine error to an HTTP status. A nil error is 200.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Status
	}

	switch {
	case errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenRevoked),
		errors.Is(err, ErrAuthRequired),
		errors.Is(err, ErrAuthInvalid),
		errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNoModuleAccess),
		errors.Is(err, ErrInsufficientPermission),
		errors.Is(err, ErrAdminOnlyBlocked),
		errors.Is(err, ErrPrincipalInactive):
		return http.StatusForbidden
	case errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrRefreshRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrPrincipalNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidGrant):
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

// wrap joins a public sentinel with its cause so both satisfy errors.Is.
func wrap(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}
