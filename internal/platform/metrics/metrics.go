// Package metrics registers the Prometheus metrics for the scoring pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	SubmissionsReceived  prometheus.Counter
	SubmissionsRejected  *prometheus.CounterVec
	SubmissionsScored    prometheus.Counter
	ScoringDegraded      prometheus.Counter
	JudgeFailures        *prometheus.CounterVec
	JudgeLatency         prometheus.Histogram
	Promotions           *prometheus.CounterVec
	PromotionConflicts   prometheus.Counter
	CertificatesIssued   prometheus.Counter
	LedgerPublishes      *prometheus.CounterVec
	LedgerPublishLatency prometheus.Histogram
	ReconcileFlags       *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SubmissionsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eqboard_submissions_received_total",
			Help: "Total submissions accepted at intake",
		}),
		SubmissionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eqboard_submissions_rejected_total",
			Help: "Submissions rejected at intake, by reason",
		}, []string{"reason"}),
		SubmissionsScored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eqboard_submissions_scored_total",
			Help: "Submissions that completed a scoring cycle",
		}),
		ScoringDegraded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eqboard_scoring_degraded_total",
			Help: "Scoring cycles that ran without an advisory score",
		}),
		JudgeFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eqboard_judge_failures_total",
			Help: "Advisory judge failures, by kind (timeout, malformed, unavailable)",
		}, []string{"kind"}),
		JudgeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "eqboard_judge_latency_seconds",
			Help:    "Latency of advisory judge calls",
			Buckets: prometheus.DefBuckets,
		}),
		Promotions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eqboard_promotions_total",
			Help: "Promotions into the ranked registry, by mode (organic, override)",
		}, []string{"mode"}),
		PromotionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eqboard_promotion_conflicts_total",
			Help: "Optimistic-concurrency conflicts during promotion writes",
		}),
		CertificatesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eqboard_certificates_issued_total",
			Help: "Certificates issued for promoted equations",
		}),
		LedgerPublishes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eqboard_ledger_publishes_total",
			Help: "Ledger publish attempts, by outcome (mined, retryable, failed)",
		}, []string{"outcome"}),
		LedgerPublishLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "eqboard_ledger_publish_latency_seconds",
			Help:    "Latency of ledger publish calls",
			Buckets: prometheus.DefBuckets,
		}),
		ReconcileFlags: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eqboard_reconcile_flags_total",
			Help: "Discrepancies flagged by the reconciliation sweep, by type",
		}, []string{"type"}),
	}
}

// ObserveJudgeLatency records a judge call duration.
func (m *Metrics) ObserveJudgeLatency(d time.Duration) {
	m.JudgeLatency.Observe(d.Seconds())
}

// ObserveLedgerLatency records a ledger publish duration.
func (m *Metrics) ObserveLedgerLatency(d time.Duration) {
	m.LedgerPublishLatency.Observe(d.Seconds())
}
