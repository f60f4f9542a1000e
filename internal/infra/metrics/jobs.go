package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(analysisJobsTotal) }

var analysisJobsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "analysis_jobs_total",
		Help: "Total number of asynchronous analysis jobs, labeled by status.",
	},
	[]string{"status"}, // 'queued', 'rejected', 'completed', 'failed'
)

func IncAnalysisJob(status string) {
	analysisJobsTotal.WithLabelValues(norm(status)).Inc()
}
