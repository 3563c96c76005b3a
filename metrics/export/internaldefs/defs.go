package internaldefs

import (
	agencyAuth "github.com/MrEthical07/agencyAuth"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   agencyAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   agencyAuth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: agencyAuth.MetricLoginSuccess, Name: "agencyauth_login_success_total", Help: "Successful login attempts."},
	{ID: agencyAuth.MetricLoginFailure, Name: "agencyauth_login_failure_total", Help: "Login attempts rejected for invalid credentials."},
	{ID: agencyAuth.MetricLoginRateLimited, Name: "agencyauth_login_rate_limited_total", Help: "Login attempts rejected by the throttle."},
	{ID: agencyAuth.MetricLoginAccountDisabled, Name: "agencyauth_login_account_disabled_total", Help: "Logins refused for an inactive account."},
	{ID: agencyAuth.MetricLoginParentDisabled, Name: "agencyauth_login_parent_disabled_total", Help: "Logins refused for an inactive agency."},
	{ID: agencyAuth.MetricLoginPendingApproval, Name: "agencyauth_login_pending_approval_total", Help: "Logins refused for an unapproved account."},
	{ID: agencyAuth.MetricSessionCreated, Name: "agencyauth_session_created_total", Help: "Created sessions."},
	{ID: agencyAuth.MetricSessionCreationFailed, Name: "agencyauth_session_creation_failed_total", Help: "Session writes that failed."},
	{ID: agencyAuth.MetricGuardAllow, Name: "agencyauth_guard_allow_total", Help: "Requests admitted by a guard."},
	{ID: agencyAuth.MetricGuardUnauthenticated, Name: "agencyauth_guard_unauthenticated_total", Help: "Requests denied without a valid session."},
	{ID: agencyAuth.MetricGuardExpired, Name: "agencyauth_guard_expired_total", Help: "Requests denied for an aged-out session."},
	{ID: agencyAuth.MetricGuardForbidden, Name: "agencyauth_guard_forbidden_total", Help: "Requests denied for role."},
	{ID: agencyAuth.MetricRehashQueued, Name: "agencyauth_rehash_queued_total", Help: "Password hashes queued for upgrade."},
	{ID: agencyAuth.MetricRehashSuccess, Name: "agencyauth_rehash_success_total", Help: "Password hashes upgraded."},
	{ID: agencyAuth.MetricRehashFailure, Name: "agencyauth_rehash_failure_total", Help: "Password hash upgrades that failed."},
	{ID: agencyAuth.MetricLogout, Name: "agencyauth_logout_total", Help: "Single-session logouts."},
	{ID: agencyAuth.MetricLogoutAll, Name: "agencyauth_logout_all_total", Help: "Logout-all operations."},
	{ID: agencyAuth.MetricRegistrationSuccess, Name: "agencyauth_registration_success_total", Help: "Accounts registered."},
	{ID: agencyAuth.MetricRegistrationDuplicate, Name: "agencyauth_registration_duplicate_total", Help: "Registrations rejected for a taken email."},
	{ID: agencyAuth.MetricRegistrationRejected, Name: "agencyauth_registration_rejected_total", Help: "Registrations rejected by validation or the store."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: agencyAuth.MetricGuardLatency, Name: "agencyauth_guard_latency_seconds", Help: "Guard decision latency."},
}

// Gauge-style counters that are not part of the snapshot.
const (
	AuditDroppedName  = "agencyauth_audit_dropped_total"
	AuditDroppedHelp  = "Audit events dropped due to dispatcher backpressure."
	RehashDroppedName = "agencyauth_rehash_dropped_total"
	RehashDroppedHelp = "Rehash jobs refused by a full queue."
)

// HistogramUpperBounds are the finite bucket bounds in seconds. The engine
// keeps one more bucket for +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf last, for exporters that
// flatten buckets into separate instruments.
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

// NormalizeBuckets copies raw into a fixed-size array, zero-filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
