package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcileFlips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkin_client",
			Subsystem: "store",
			Name:      "reconcile_flips_total",
			Help:      "Scanned-in flag corrections by direction during sync.",
		},
		[]string{"direction"},
	)

	optimisticRollbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "checkin_client",
			Subsystem: "store",
			Name:      "optimistic_rollbacks_total",
			Help:      "Manual check-ins reverted after upstream rejection.",
		},
	)

	staleDiscardsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "checkin_client",
			Subsystem: "store",
			Name:      "stale_results_discarded_total",
			Help:      "Fetch/search completions dropped by the sequence guard.",
		},
	)
)
