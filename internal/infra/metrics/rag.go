package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(ragChunksIndexedTotal, ragQuestionsTotal) }

var (
	ragChunksIndexedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rag_chunks_indexed_total",
			Help: "Chunks embedded and written to the vector index.",
		},
	)

	ragQuestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_questions_total",
			Help: "Questions answered over ingested contracts, labeled by outcome.",
		},
		[]string{"outcome"},
	)
)

func AddChunksIndexed(n int) {
	ragChunksIndexedTotal.Add(float64(n))
}

func IncQuestion(outcome string) {
	ragQuestionsTotal.WithLabelValues(norm(outcome)).Inc()
}
