package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/bitguard"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError renders err as {"error": code, "message": text} with the status
// bitguard.StatusOf assigns to it. Store and engine failures are reported without their
// cause.
func WriteError(w http.ResponseWriter, err error) {
	status := bitguard.StatusOf(err)
	code := ErrorCode(err)
	message := err.Error()
	if code == bitguard.CodeUnavailable {
		message = http.StatusText(status)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="bitguard"`)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: code, Message: message})
}

// ErrorCode returns the stable machine-readable code for an engine error.
func ErrorCode(err error) string {
	var authErr *bitguard.AuthError
	if errors.As(err, &authErr) {
		return authErr.Code
	}

	switch {
	case errors.Is(err, bitguard.ErrAuthRequired):
		return bitguard.CodeAuthRequired
	case errors.Is(err, bitguard.ErrAuthInvalid):
		return bitguard.CodeAuthInvalid
	case errors.Is(err, bitguard.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, bitguard.ErrTokenRevoked):
		return "token_revoked"
	case errors.Is(err, bitguard.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, bitguard.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, bitguard.ErrPrincipalInactive):
		return "principal_inactive"
	case errors.Is(err, bitguard.ErrLoginRateLimited),
		errors.Is(err, bitguard.ErrRefreshRateLimited):
		return "rate_limited"
	case errors.Is(err, bitguard.ErrPrincipalNotFound):
		return "principal_not_found"
	case errors.Is(err, bitguard.ErrInvalidGrant):
		return "invalid_grant"
	default:
		return bitguard.CodeUnavailable
	}
}
