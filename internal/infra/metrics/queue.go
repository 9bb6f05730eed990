package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(queueDeliveriesTotal)
}

var queueDeliveriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dispatch_deliveries_total",
		Help: "Dispatch queue delivery outcomes.",
	},
	[]string{"outcome"}, // 'claimed', 'acked', 'retried', 'dropped'
)

func IncQueueDelivery(outcome string) {
	queueDeliveriesTotal.WithLabelValues(norm(outcome)).Inc()
}
