package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(sessionLookupsTotal) }

var sessionLookupsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "session_lookups_total",
		Help: "Session store reads by backend and result.",
	},
	[]string{"backend", "result"}, // e.g., backend="redis", result="hit"
)

func IncSessionLookup(backend, result string) {
	sessionLookupsTotal.WithLabelValues(norm(backend), norm(result)).Inc()
}
