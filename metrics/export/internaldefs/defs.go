package internaldefs

import (
	sessiongate "github.com/kestrelworks/sessiongate"
)

// CounterDef defines a public type used by sessiongate APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   sessiongate.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by sessiongate APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   sessiongate.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the session engine.
var CounterDefs = []CounterDef{
	{ID: sessiongate.MetricLoginSuccess, Name: "sessiongate_login_success_total", Help: "Successful credential exchanges."},
	{ID: sessiongate.MetricLoginRejected, Name: "sessiongate_login_rejected_total", Help: "Authoritatively rejected credential exchanges."},
	{ID: sessiongate.MetricLoginTransient, Name: "sessiongate_login_transient_total", Help: "Credential exchanges that failed for transient reasons."},
	{ID: sessiongate.MetricMFARequired, Name: "sessiongate_mfa_required_total", Help: "Logins answered with an MFA challenge."},
	{ID: sessiongate.MetricMFASuccess, Name: "sessiongate_mfa_success_total", Help: "Successful MFA code verifications."},
	{ID: sessiongate.MetricMFAFailure, Name: "sessiongate_mfa_failure_total", Help: "Failed MFA code verifications."},
	{ID: sessiongate.MetricMFACancelled, Name: "sessiongate_mfa_cancelled_total", Help: "Cancelled MFA challenges."},
	{ID: sessiongate.MetricMFAResend, Name: "sessiongate_mfa_resend_total", Help: "MFA code resend requests."},
	{ID: sessiongate.MetricRefreshSuccess, Name: "sessiongate_refresh_success_total", Help: "Successful token refreshes."},
	{ID: sessiongate.MetricRefreshFailure, Name: "sessiongate_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: sessiongate.MetricRefreshSkipped, Name: "sessiongate_refresh_skipped_total", Help: "Refresh calls skipped for unexpired or non-credential sessions."},
	{ID: sessiongate.MetricValidateBackendCall, Name: "sessiongate_validate_backend_call_total", Help: "Validation attempts sent to the identity service."},
	{ID: sessiongate.MetricValidateCached, Name: "sessiongate_validate_cached_total", Help: "Validation calls answered from the cached result."},
	{ID: sessiongate.MetricValidateSkipped, Name: "sessiongate_validate_skipped_total", Help: "Validation calls skipped on auth-related paths."},
	{ID: sessiongate.MetricValidateFailOpen, Name: "sessiongate_validate_fail_open_total", Help: "Validations that failed open: exhausted attempt budget or non-critical rejection."},
	{ID: sessiongate.MetricValidateRejected, Name: "sessiongate_validate_rejected_total", Help: "Sessions authoritatively rejected by the identity service."},
	{ID: sessiongate.MetricForcedLogout, Name: "sessiongate_forced_logout_total", Help: "Forced local sign-outs."},
	{ID: sessiongate.MetricSessionCreated, Name: "sessiongate_session_created_total", Help: "Created sessions."},
	{ID: sessiongate.MetricSessionInvalidated, Name: "sessiongate_session_invalidated_total", Help: "Invalidated sessions."},
	{ID: sessiongate.MetricLogout, Name: "sessiongate_logout_total", Help: "Single-session logout operations."},
	{ID: sessiongate.MetricLogoutAll, Name: "sessiongate_logout_all_total", Help: "Logout-all operations."},
	{ID: sessiongate.MetricPasswordChangeSuccess, Name: "sessiongate_password_change_success_total", Help: "Successful password changes."},
	{ID: sessiongate.MetricPasswordChangeFailure, Name: "sessiongate_password_change_failure_total", Help: "Failed password changes."},
	{ID: sessiongate.MetricGateRedirect, Name: "sessiongate_gate_redirect_total", Help: "Redirects issued by the password-reset gate."},
}

// HistogramDefs is an exported constant or variable used by the session engine.
var HistogramDefs = []HistogramDef{
	{ID: sessiongate.MetricValidateLatency, Name: "sessiongate_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the session engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
