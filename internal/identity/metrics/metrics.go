// Package metrics exposes Prometheus metrics for the identity module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledgergate_identity_registrations_total",
		Help: "Total number of identity records created.",
	})

	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgergate_identity_transitions_total",
		Help: "Verification status transitions by source and target status.",
	}, []string{"from", "to"})

	VerifiedUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledgergate_identity_verified_users",
		Help: "Number of identity records currently in Verified stored status.",
	})
)
