package checkin

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var operationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "checkin_client",
		Name:      "operations_total",
		Help:      "Facade operations invoked by the UI layer.",
	},
	[]string{"operation"},
)
