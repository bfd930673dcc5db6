package scan

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkin_client",
			Subsystem: "scan",
			Name:      "passes_total",
			Help:      "Completed scan passes by terminal outcome.",
		},
		[]string{"outcome"},
	)

	duplicatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "checkin_client",
			Subsystem: "scan",
			Name:      "duplicates_suppressed_total",
			Help:      "Payloads dropped by the same-code suppression window.",
		},
	)

	watchdogTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "checkin_client",
			Subsystem: "scan",
			Name:      "watchdog_resets_total",
			Help:      "Forced returns to idle after a pass failed to terminate.",
		},
	)

	groupHandoffsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "checkin_client",
			Subsystem: "scan",
			Name:      "group_handoffs_total",
			Help:      "Scans that resolved to a multi-admit group booking.",
		},
	)

	groupBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "checkin_client",
			Subsystem: "scan",
			Name:      "group_batch_size",
			Help:      "Number of tickets per group fan-out.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		},
	)
)
