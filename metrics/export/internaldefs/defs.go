package internaldefs

import (
	"github.com/MrEthical07/authsession"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   authsession.MetricID
	Name string
	Help string
}

// HistogramDef names one exported latency histogram.
type HistogramDef struct {
	ID   authsession.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: authsession.MetricLoginSuccess, Name: "authsession_login_success_total", Help: "Successful logins."},
	{ID: authsession.MetricLoginFailure, Name: "authsession_login_failure_total", Help: "Rejected or failed logins."},
	{ID: authsession.MetricRegisterSuccess, Name: "authsession_register_success_total", Help: "Successful registrations."},
	{ID: authsession.MetricRegisterFailure, Name: "authsession_register_failure_total", Help: "Failed registrations."},
	{ID: authsession.MetricLogout, Name: "authsession_logout_total", Help: "Logouts."},
	{ID: authsession.MetricLogoutRemoteFailure, Name: "authsession_logout_remote_failure_total", Help: "Logouts whose server call failed."},
	{ID: authsession.MetricRefreshSuccess, Name: "authsession_refresh_success_total", Help: "Renewal cycles that produced new tokens."},
	{ID: authsession.MetricRefreshFailure, Name: "authsession_refresh_failure_total", Help: "Renewal cycles that ended the session."},
	{ID: authsession.MetricRefreshCoalesced, Name: "authsession_refresh_coalesced_total", Help: "Callers that joined an in-flight renewal."},
	{ID: authsession.MetricRetry, Name: "authsession_request_retry_total", Help: "Requests re-sent after renewal."},
	{ID: authsession.MetricSessionRestored, Name: "authsession_session_restored_total", Help: "Silent session restores."},
	{ID: authsession.MetricSessionCleared, Name: "authsession_session_cleared_total", Help: "Local session clears."},
	{ID: authsession.MetricHydrateSuccess, Name: "authsession_hydrate_success_total", Help: "Successful user refreshes."},
	{ID: authsession.MetricHydrateTransient, Name: "authsession_hydrate_transient_total", Help: "User refreshes that kept the cached identity."},
	{ID: authsession.MetricRequestFailure, Name: "authsession_request_failure_total", Help: "API calls that failed."},
}

// HistogramDefs lists every latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: authsession.MetricRequestLatency, Name: "authsession_request_latency_seconds", Help: "API call latency."},
	{ID: authsession.MetricRefreshLatency, Name: "authsession_refresh_latency_seconds", Help: "Renewal call latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const (
	AuditDroppedName = "authsession_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// flatten buckets into gauges.
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

// NormalizeBuckets pads or truncates raw to eight buckets.
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
