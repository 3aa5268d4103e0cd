package internaldefs

import (
	"github.com/MrEthical07/bitguard"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   bitguard.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   bitguard.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exporters publish for Engine.AuditDropped.
const (
	AuditDroppedName = "bitguard_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped because the dispatcher buffer was full."
)

var CounterDefs = []CounterDef{
	{ID: bitguard.MetricTokenIssued, Name: "bitguard_token_issued_total", Help: "Access and refresh tokens issued."},
	{ID: bitguard.MetricValidateSuccess, Name: "bitguard_validate_success_total", Help: "Tokens that validated."},
	{ID: bitguard.MetricValidateInvalid, Name: "bitguard_validate_invalid_total", Help: "Tokens rejected as malformed or badly signed."},
	{ID: bitguard.MetricValidateExpired, Name: "bitguard_validate_expired_total", Help: "Tokens rejected as expired."},
	{ID: bitguard.MetricRefreshSuccess, Name: "bitguard_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: bitguard.MetricRefreshRevoked, Name: "bitguard_refresh_revoked_total", Help: "Refresh tokens rejected as revoked or replayed."},
	{ID: bitguard.MetricRefreshFailure, Name: "bitguard_refresh_failure_total", Help: "Refresh attempts that failed for other reasons."},
	{ID: bitguard.MetricRefreshRateLimited, Name: "bitguard_refresh_rate_limited_total", Help: "Refresh attempts denied by the throttle."},
	{ID: bitguard.MetricRevoke, Name: "bitguard_revoke_total", Help: "Refresh slots cleared by revoke or logout."},
	{ID: bitguard.MetricLoginSuccess, Name: "bitguard_login_success_total", Help: "Successful logins."},
	{ID: bitguard.MetricLoginFailure, Name: "bitguard_login_failure_total", Help: "Failed logins."},
	{ID: bitguard.MetricLoginRateLimited, Name: "bitguard_login_rate_limited_total", Help: "Logins denied by the throttle."},
	{ID: bitguard.MetricAuthorizeAllowed, Name: "bitguard_authorize_allowed_total", Help: "Requests allowed."},
	{ID: bitguard.MetricAuthorizeAuthRequired, Name: "bitguard_authorize_auth_required_total", Help: "Requests denied for a missing credential."},
	{ID: bitguard.MetricAuthorizeAuthInvalid, Name: "bitguard_authorize_auth_invalid_total", Help: "Requests denied for an invalid credential."},
	{ID: bitguard.MetricAuthorizeNoModuleAccess, Name: "bitguard_authorize_no_module_access_total", Help: "Requests denied for a missing grant row."},
	{ID: bitguard.MetricAuthorizeInsufficient, Name: "bitguard_authorize_insufficient_permission_total", Help: "Requests denied for a missing permission bit."},
	{ID: bitguard.MetricAuthorizeAdminOnly, Name: "bitguard_authorize_admin_only_total", Help: "Requests denied on admin-only modules."},
	{ID: bitguard.MetricAuthorizeUnavailable, Name: "bitguard_authorize_unavailable_total", Help: "Requests denied because a store was unavailable."},
	{ID: bitguard.MetricGrantChanged, Name: "bitguard_grant_changed_total", Help: "Grant rows written or deleted."},
}

var HistogramDefs = []HistogramDef{
	{ID: bitguard.MetricAuthorizeLatency, Name: "bitguard_authorize_latency_seconds", Help: "Authorize latency."},
}

// HistogramBounds are the finite upper bounds in seconds. The eighth bucket is +Inf.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that publish one
// instrument per bucket.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
