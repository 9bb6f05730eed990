package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		admissionsTotal,
		admissionEstimate,
		quotaRemaining,
	)
}

var (
	admissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admissions_total",
			Help: "Admission decisions by mode and outcome.",
		},
		[]string{"mode", "outcome"}, // 'admitted', 'quota_exceeded', 'replay', 'invalid', 'error'
	)

	admissionEstimate = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "admission_estimate_aej",
			Help:    "Distribution of admitted cost estimates in AEJ units.",
			Buckets: []float64{4, 8, 16, 32, 64, 120},
		},
		[]string{"mode"},
	)

	quotaRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quota_remaining_aej",
			Help: "Remaining monthly budget per tenant after the last admission touch.",
		},
		[]string{"tenant"},
	)
)

func IncAdmission(mode, outcome string) {
	admissionsTotal.WithLabelValues(norm(mode), norm(outcome)).Inc()
}

func ObserveAdmittedEstimate(mode string, estimate int64) {
	admissionEstimate.WithLabelValues(norm(mode)).Observe(float64(estimate))
}

func SetQuotaRemaining(tenant string, remaining int64) {
	quotaRemaining.WithLabelValues(tenant).Set(float64(remaining))
}
