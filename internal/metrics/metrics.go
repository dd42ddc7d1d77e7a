package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	GateDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keygate_decisions_total",
			Help: "Gate validation decisions, labelled by outcome reason (allowed for accepted requests).",
		},
		[]string{"reason"},
	)

	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "keygate_rate_limited_total",
			Help: "Requests rejected by the per-minute rate limiter.",
		},
	)

	UsageRecordFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "keygate_usage_record_failures_total",
			Help: "Usage increments that failed and were dropped.",
		},
	)
)

// Init registers the gate metrics with the default registry. Call once at
// process start.
func Init() {
	prometheus.MustRegister(GateDecisions, RateLimited, UsageRecordFailures)
}
