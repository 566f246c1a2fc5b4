package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	PipelineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soudan",
			Name:      "pipeline_requests_total",
			Help:      "Total pipeline runs by schema and outcome",
		},
		[]string{"schema", "outcome"}, // outcome: done / clarification / failed / cancelled
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "soudan",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	ModelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soudan",
			Name:      "model_requests_total",
			Help:      "Total model endpoint calls",
		},
		[]string{"call", "status"}, // call: extract / generate
	)

	ModelRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "soudan",
			Name:      "model_request_duration_seconds",
			Help:      "Model call duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"call"},
	)

	ModelTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soudan",
			Name:      "model_tokens_total",
			Help:      "Total completion tokens consumed",
		},
		[]string{"call"},
	)

	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soudan",
			Name:      "request_cache_total",
			Help:      "Request cache hits and misses",
		},
		[]string{"cache", "result"}, // cache: intent / result; result: hit / miss
	)

	GraphRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "soudan",
			Name:      "graph_retries_total",
			Help:      "Total graph query retry attempts",
		},
	)

	ModelRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "soudan",
			Name:      "model_retries_total",
			Help:      "Total model call retry attempts",
		},
	)

	GroundingViolationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "soudan",
			Name:      "grounding_violations_total",
			Help:      "Answers that referenced evidence outside the context window",
		},
	)
)

// RegisterPipelineMetrics registers pipeline collectors with the
// default registry. Explicit, no init().
func RegisterPipelineMetrics() {
	prometheus.MustRegister(
		PipelineRequestsTotal,
		StageDuration,
		ModelRequestsTotal,
		ModelRequestDuration,
		ModelTokensTotal,
		CacheTotal,
		GraphRetriesTotal,
		ModelRetriesTotal,
		GroundingViolationsTotal,
	)
}
