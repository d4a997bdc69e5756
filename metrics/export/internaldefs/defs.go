package internaldefs

import (
	edgeAuth "github.com/MrEthical07/edgeAuth"
)

// CounterDef names one edgeAuth counter for exporters.
type CounterDef struct {
	ID   edgeAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one edgeAuth latency histogram for exporters.
type HistogramDef struct {
	ID   edgeAuth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter name for dropped audit events.
const AuditDroppedName = "edgeauth_audit_dropped_total"

// CounterDefs lists every exported counter in MetricID order.
var CounterDefs = []CounterDef{
	{ID: edgeAuth.MetricAuthValid, Name: "edgeauth_auth_valid_total", Help: "Requests authenticated with a valid session."},
	{ID: edgeAuth.MetricAuthInvalid, Name: "edgeauth_auth_invalid_total", Help: "Requests rejected as unauthenticated."},
	{ID: edgeAuth.MetricAuthError, Name: "edgeauth_auth_error_total", Help: "Requests that failed with an internal or upstream error."},
	{ID: edgeAuth.MetricSignatureInvalid, Name: "edgeauth_signature_invalid_total", Help: "Session cookies whose signature matched no key."},
	{ID: edgeAuth.MetricRefreshSuccess, Name: "edgeauth_refresh_success_total", Help: "Successful ID token refreshes."},
	{ID: edgeAuth.MetricRefreshFailure, Name: "edgeauth_refresh_failure_total", Help: "Failed ID token refreshes."},
	{ID: edgeAuth.MetricRevocationCheck, Name: "edgeauth_revocation_check_total", Help: "Account lookups made for revocation checks."},
	{ID: edgeAuth.MetricRevoked, Name: "edgeauth_revoked_total", Help: "Sessions rejected because the account was revoked."},
	{ID: edgeAuth.MetricLoginSuccess, Name: "edgeauth_login_success_total", Help: "Successful logins."},
	{ID: edgeAuth.MetricLoginFailure, Name: "edgeauth_login_failure_total", Help: "Failed logins."},
	{ID: edgeAuth.MetricLogout, Name: "edgeauth_logout_total", Help: "Logouts."},
	{ID: edgeAuth.MetricForwardedSkip, Name: "edgeauth_forwarded_skip_total", Help: "Requests already verified by an earlier hop."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: edgeAuth.MetricAuthenticateLatency, Name: "edgeauth_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// UpperBounds are the finite bucket upper bounds in seconds. The final
// bucket of a snapshot is +Inf.
var UpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket for exporters that cannot carry
// an "le" label.
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

// NormalizeBuckets copies raw into a fixed-size array, zero filling any
// missing buckets.
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

// ApproxSum estimates the sum of observations from bucket counts using each
// bucket's upper bound; the +Inf bucket uses the largest finite bound.
func ApproxSum(raw [8]uint64) float64 {
	var sum float64
	for i, n := range raw {
		bound := UpperBounds[len(UpperBounds)-1]
		if i < len(UpperBounds) {
			bound = UpperBounds[i]
		}
		sum += float64(n) * bound
	}
	return sum
}
