package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkin_client",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Remote calls by operation and outcome (ok/rejected/error).",
		},
		[]string{"operation", "outcome"},
	)

	authRefreshTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "checkin_client",
			Subsystem: "gateway",
			Name:      "auth_refresh_total",
			Help:      "Token refreshes triggered by a 401 response.",
		},
	)
)
