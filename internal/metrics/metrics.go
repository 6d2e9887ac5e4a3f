package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Moderation outcomes used as the label on RequestsTotal.
const (
	OutcomeSuccess          = "success"
	OutcomeOriginDenied     = "origin_denied"
	OutcomeInvalidRequest   = "invalid_request"
	OutcomeAuthMissing      = "auth_missing"
	OutcomeAuthDenied       = "auth_denied"
	OutcomeQuotaExhausted   = "quota_exhausted"
	OutcomeUpstreamFailure  = "upstream_failure"
	OutcomeUpstreamRejected = "upstream_rejected"
)

var (
	// RequestsTotal counts moderation requests by terminal outcome.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "novamod",
		Name:      "moderation_requests_total",
		Help:      "Moderation requests by terminal pipeline outcome.",
	}, []string{"outcome"})

	// UpstreamLatency observes classifier round-trip time in seconds.
	UpstreamLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "novamod",
		Name:      "upstream_latency_seconds",
		Help:      "PicPurify classification call latency.",
		Buckets:   prometheus.DefBuckets,
	})

	// DebitFailures counts debits that failed after a successful upstream call.
	DebitFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "novamod",
		Name:      "debit_failures_total",
		Help:      "Token debits that failed after the classification was delivered.",
	})
)
