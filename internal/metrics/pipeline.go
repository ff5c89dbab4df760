package metrics

import "github.com/prometheus/client_golang/prometheus"

// Routing pipeline Prometheus metrics.
var (
	ClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "silverpath",
			Name:      "classifications_total",
			Help:      "Total namespace classifications by path and outcome",
		},
		[]string{"path", "outcome"}, // path: "fast"/"composed"/"general", outcome: "hit"/"miss"
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "silverpath",
			Name:      "search_requests_total",
			Help:      "Total vector index searches by stage and status",
		},
		[]string{"stage", "status"}, // stage: "target"/"neighbor"/"unfiltered"
	)

	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "silverpath",
			Name:      "search_request_duration_seconds",
			Help:      "Vector index search duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"stage"},
	)

	GenerateRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "silverpath",
			Name:      "generate_requests_total",
			Help:      "Total language model calls by purpose and status",
		},
		[]string{"purpose", "status"},
	)

	GenerateRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "silverpath",
			Name:      "generate_request_duration_seconds",
			Help:      "Language model call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"purpose"},
	)

	FallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "silverpath",
			Name:      "fallbacks_total",
			Help:      "Total queries answered by the generative fallback",
		},
	)

	GenCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "silverpath",
			Name:      "gen_cache_total",
			Help:      "Generation cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers routing pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(ClassificationsTotal)
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchRequestDuration)
	prometheus.MustRegister(GenerateRequestsTotal)
	prometheus.MustRegister(GenerateRequestDuration)
	prometheus.MustRegister(FallbacksTotal)
	prometheus.MustRegister(GenCacheTotal)
	pipelineMetricsRegistered = true
}
