package internaldefs

import (
	"github.com/MrEthical07/bearerAuth"
)

// CounterDef names one counter slot of bearerAuth.Metrics.
type CounterDef struct {
	ID   bearerAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one histogram slot of bearerAuth.Metrics.
type HistogramDef struct {
	ID   bearerAuth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "bearerauth_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// CounterDefs lists every exported counter in MetricID order.
var CounterDefs = []CounterDef{
	{ID: bearerAuth.MetricIssueSuccess, Name: "bearerauth_issue_success_total", Help: "Issued tokens."},
	{ID: bearerAuth.MetricIssueFailure, Name: "bearerauth_issue_failure_total", Help: "Refused or failed token issuance."},
	{ID: bearerAuth.MetricValidateValid, Name: "bearerauth_validate_valid_total", Help: "Tokens that verified."},
	{ID: bearerAuth.MetricValidateEmpty, Name: "bearerauth_validate_empty_total", Help: "Validation calls without a token."},
	{ID: bearerAuth.MetricValidateMalformed, Name: "bearerauth_validate_malformed_total", Help: "Corrupt or forged tokens."},
	{ID: bearerAuth.MetricValidateUnsupported, Name: "bearerauth_validate_unsupported_total", Help: "Tokens signed with an unsupported algorithm."},
	{ID: bearerAuth.MetricValidateExpired, Name: "bearerauth_validate_expired_total", Help: "Expired tokens."},
	{ID: bearerAuth.MetricRefreshSuccess, Name: "bearerauth_refresh_success_total", Help: "Completed refresh rotations."},
	{ID: bearerAuth.MetricRefreshTokenInvalid, Name: "bearerauth_refresh_token_invalid_total", Help: "Refresh attempts with a token that did not validate."},
	{ID: bearerAuth.MetricRefreshNoPersistedToken, Name: "bearerauth_refresh_no_persisted_token_total", Help: "Refresh attempts for principals without a stored token."},
	{ID: bearerAuth.MetricRefreshSuperseded, Name: "bearerauth_refresh_superseded_total", Help: "Presentations of an already rotated refresh token."},
	{ID: bearerAuth.MetricRefreshStoreUnavailable, Name: "bearerauth_refresh_store_unavailable_total", Help: "Refresh attempts aborted by store errors."},
	{ID: bearerAuth.MetricPrincipalNotFound, Name: "bearerauth_principal_not_found_total", Help: "Valid tokens whose subject no longer resolves."},
	{ID: bearerAuth.MetricSessionStarted, Name: "bearerauth_session_started_total", Help: "Sessions started with a persisted refresh token."},
	{ID: bearerAuth.MetricLogout, Name: "bearerauth_logout_total", Help: "Deleted refresh records."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: bearerAuth.MetricValidateLatency, Name: "bearerauth_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The last snapshot bucket
// is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters without native
// histogram buckets.
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

// NormalizeBuckets copies raw into a fixed eight-slot array, zero filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
