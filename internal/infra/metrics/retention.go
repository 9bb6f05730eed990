package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(eventsPrunedTotal)
}

var eventsPrunedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "event_log_pruned_total",
		Help: "Event log rows removed by the retention sweeper.",
	},
)

func AddEventsPruned(n int64) {
	if n > 0 {
		eventsPrunedTotal.Add(float64(n))
	}
}
