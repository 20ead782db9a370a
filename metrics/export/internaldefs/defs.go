package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef defines a public type used by goSession APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goSession APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the session engine.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricSignInSuccess, Name: "gosession_sign_in_success_total", Help: "Successful sign-in attempts."},
	{ID: goSession.MetricSignInFailure, Name: "gosession_sign_in_failure_total", Help: "Failed sign-in attempts."},
	{ID: goSession.MetricSignOut, Name: "gosession_sign_out_total", Help: "Explicit sign-out operations."},
	{ID: goSession.MetricForcedSignOut, Name: "gosession_forced_sign_out_total", Help: "Sign-outs forced by profile deactivation."},
	{ID: goSession.MetricIdleExpiry, Name: "gosession_idle_expiry_total", Help: "Sessions expired for inactivity."},
	{ID: goSession.MetricProfileApplied, Name: "gosession_profile_applied_total", Help: "Profile documents merged into session state."},
	{ID: goSession.MetricProfileFallback, Name: "gosession_profile_fallback_total", Help: "Sessions degraded to the fallback profile."},
	{ID: goSession.MetricProfileSubscriptionError, Name: "gosession_profile_subscription_error_total", Help: "Profile subscription errors absorbed."},
	{ID: goSession.MetricMetadataSyncFailure, Name: "gosession_metadata_sync_failure_total", Help: "Failed display-metadata reconciliations."},
	{ID: goSession.MetricStorageFailure, Name: "gosession_storage_failure_total", Help: "Activity storage failures absorbed."},
	{ID: goSession.MetricActivityReset, Name: "gosession_activity_reset_total", Help: "Idle countdown resets from tracked interactions."},
	{ID: goSession.MetricRedirectIssued, Name: "gosession_redirect_issued_total", Help: "Navigations issued by route guards."},
	{ID: goSession.MetricGuardBlocked, Name: "gosession_guard_blocked_total", Help: "Route transitions blocked by guards."},
}

// HistogramDefs is an exported constant or variable used by the session engine.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricResolveLatency, Name: "gosession_resolve_latency_seconds", Help: "Profile resolve latency histogram."},
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

// HistogramBoundSuffix is an exported constant or variable used by the session engine.
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
