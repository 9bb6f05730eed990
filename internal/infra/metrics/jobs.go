package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		jobsSettledTotal,
		jobDurationSeconds,
		holdsReleasedTotal,
		fallbacksTotal,
	)
}

var (
	jobsSettledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_settled_total",
			Help: "Jobs settled by the worker, labeled by final status.",
		},
		[]string{"status"}, // 'done', 'error', 'canceled'
	)

	jobDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Wall time from claim to settlement.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"mode"},
	)

	holdsReleasedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "holds_released_total",
			Help: "Quota holds released across all settlement paths.",
		},
	)

	fallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_fallbacks_total",
			Help: "Jobs completed via the fallback synthesizer, by cause.",
		},
		[]string{"cause"}, // 'degraded', 'backend_failure'
	)
)

func IncJobSettled(status string) {
	jobsSettledTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveJobDuration(mode string, seconds float64) {
	jobDurationSeconds.WithLabelValues(norm(mode)).Observe(seconds)
}

func IncHoldReleased() {
	holdsReleasedTotal.Inc()
}

func IncFallback(cause string) {
	fallbacksTotal.WithLabelValues(norm(cause)).Inc()
}
