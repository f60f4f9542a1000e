package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(agentResultsTotal) }

var agentResultsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "agent_results_total",
		Help: "Analysis agent results by agent and outcome (ok or error kind).",
	},
	[]string{"agent", "outcome"},
)

func IncAgentResult(agent, outcome string) {
	agentResultsTotal.WithLabelValues(norm(agent), norm(outcome)).Inc()
}
