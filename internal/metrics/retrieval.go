package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion and query Prometheus metrics.
var (
	IngestClausesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clauseidx",
			Name:      "ingest_clauses_total",
			Help:      "Total number of clauses processed by ingestion",
		},
		[]string{"index", "status"}, // "indexed" / "failed"
	)

	IngestBatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clauseidx",
			Name:      "ingest_batch_duration_seconds",
			Help:      "Per-batch ingestion duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"index"},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clauseidx",
			Name:      "query_duration_seconds",
			Help:      "Hybrid query duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"reranked"},
	)

	QueryCandidatesTotal = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clauseidx",
			Name:      "query_candidates",
			Help:      "Merged candidate set size per query",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 200},
		},
		[]string{"modality"}, // "lexical" / "vector" / "merged"
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers ingestion and query metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestClausesTotal)
	prometheus.MustRegister(IngestBatchDuration)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryCandidatesTotal)
	retrievalMetricsRegistered = true
}
