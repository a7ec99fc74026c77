package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkflowOutcomes counts handled interactions by workflow and outcome.
	WorkflowOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "middleman",
		Name:      "workflow_outcomes_total",
		Help:      "Handled interactions by workflow and outcome.",
	}, []string{"workflow", "outcome"})

	StoreWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "middleman",
		Name:      "store_writes_total",
		Help:      "Durable writes of the deals document by result.",
	}, []string{"result"})

	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "middleman",
		Name:      "notification_failures_total",
		Help:      "Outbound messages that could not be delivered, by target.",
	}, []string{"target"})

	// DealsByStatus is refreshed by the store after every mutation.
	DealsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "middleman",
		Name:      "deals",
		Help:      "Number of deals by status.",
	}, []string{"status"})
)
