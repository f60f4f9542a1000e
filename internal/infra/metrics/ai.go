package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiCallsTotal,
		aiCallsLatencyMs,
		aiTokensIn,
		aiTokensOut,
	)
}

var (
	aiCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_calls_total",
			Help: "Remote AI calls by provider, operation (generate|embed) and outcome.",
		},
		[]string{"provider", "op", "outcome"},
	)

	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "AI call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 30000},
		},
		[]string{"provider", "op", "success"},
	)

	aiTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_in",
			Help: "Sum of prompt (input) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_out",
			Help: "Sum of completion (output) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)
)

// ObserveAICall records one remote call. outcome is the error kind, or "ok".
func ObserveAICall(provider, op, outcome string, latencyMs int64) {
	aiCallsTotal.WithLabelValues(norm(provider), norm(op), norm(outcome)).Inc()
	aiCallsLatencyMs.WithLabelValues(norm(provider), norm(op), strconv.FormatBool(outcome == "ok")).
		Observe(float64(latencyMs))
}

func AddTokens(provider, model string, tokensIn, tokensOut int) {
	lbl := []string{norm(provider), norm(model)}
	if tokensIn > 0 {
		aiTokensIn.WithLabelValues(lbl...).Add(float64(tokensIn))
	}
	if tokensOut > 0 {
		aiTokensOut.WithLabelValues(lbl...).Add(float64(tokensOut))
	}
}
