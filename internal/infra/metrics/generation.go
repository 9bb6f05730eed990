package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		genTokensIn,
		genTokensOut,
		genCallsLatencyMs,
	)
}

var (
	genTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_tokens_in",
			Help: "Sum of prompt (input) tokens per backend/model.",
		},
		[]string{"backend", "model"},
	)

	genTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_tokens_out",
			Help: "Sum of completion (output) tokens per backend/model.",
		},
		[]string{"backend", "model"},
	)

	genCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_calls_latency_ms",
			Help:    "Generation call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 20000, 30000},
		},
		[]string{"backend", "model", "success"},
	)
)

func ObserveGeneration(backend, model string, tokensIn, tokensOut int, latencyMs int64, success bool) {
	lbl := []string{norm(backend), norm(model)}
	genTokensIn.WithLabelValues(lbl...).Add(float64(tokensIn))
	genTokensOut.WithLabelValues(lbl...).Add(float64(tokensOut))
	genCallsLatencyMs.WithLabelValues(norm(backend), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}
