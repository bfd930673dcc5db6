package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "checkin_client",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Reads served from a live cache entry.",
	})

	missesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "checkin_client",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Reads that fell through to the gateway.",
	})

	evictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "checkin_client",
		Subsystem: "cache",
		Name:      "evictions_total",
		Help:      "Entries dropped by TTL expiry or invalidation.",
	})
)
