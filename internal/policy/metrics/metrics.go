// Package metrics exposes Prometheus metrics for the policy evaluator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgergate_policy_evaluations_total",
		Help: "Policy evaluations by movement kind and outcome.",
	}, []string{"kind", "outcome", "reason"})

	EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledgergate_policy_evaluation_duration_seconds",
		Help:    "Wall time of a single policy evaluation.",
		Buckets: prometheus.DefBuckets,
	})
)
