package flows

import (
	"errors"

	"github.com/MrEthical07/bitguard/token"
)

// ValidateFailureKind classifies codec failures. The caller-visible outcome is the same for
// all of them; the kind exists for logging and metrics.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureMalformed
	ValidateFailureBadSignature
	ValidateFailurePayload
	ValidateFailureExpired
)

// Reason returns the log label for k.
func (k ValidateFailureKind) Reason() string {
	switch k {
	case ValidateFailureNone:
		return ""
	case ValidateFailureMalformed:
		return "malformed_token"
	case ValidateFailureBadSignature:
		return "bad_signature"
	case ValidateFailurePayload:
		return "malformed_payload"
	case ValidateFailureExpired:
		return "token_expired"
	default:
		return "unknown"
	}
}

// ValidateResult carries decoded claims or the failure kind.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  token.Claims
}

// ValidateDeps captures validation dependencies.
type ValidateDeps struct {
	DecodeVerify func(string) (token.Claims, error)
}

// RunValidate decodes and verifies raw.
func RunValidate(raw string, deps ValidateDeps) ValidateResult {
	claims, err := deps.DecodeVerify(raw)
	if err == nil {
		return ValidateResult{Claims: claims}
	}

	kind := ValidateFailureMalformed
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		kind = ValidateFailureExpired
	case errors.Is(err, token.ErrBadSignature):
		kind = ValidateFailureBadSignature
	case errors.Is(err, token.ErrMalformedPayload):
		kind = ValidateFailurePayload
	}
	return ValidateResult{Failure: kind, Err: err, Claims: claims}
}
