// Package metrics defines the Prometheus instrumentation for the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RetrievalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "kotae",
			Name:      "retrieval_duration_seconds",
			Help:      "Hybrid retrieval duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	RetrievalDegradationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kotae",
			Name:      "retrieval_degradations_total",
			Help:      "Retrievals that continued on a single signal after a degradation",
		},
		[]string{"signal"}, // "keyword" / "vector"
	)

	ValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kotae",
			Name:      "validations_total",
			Help:      "Validation calls by level and outcome",
		},
		[]string{"level", "outcome"}, // outcome: "valid" / "invalid"
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kotae",
			Name:      "generation_requests_total",
			Help:      "Chat completion requests",
		},
		[]string{"model", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kotae",
			Name:      "generation_request_duration_seconds",
			Help:      "Chat completion request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)

	GenerationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kotae",
			Name:      "generation_tokens_total",
			Help:      "Chat completion tokens consumed",
		},
		[]string{"model", "type"}, // type: "prompt" / "completion"
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kotae",
			Name:      "embedding_requests_total",
			Help:      "Embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kotae",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	SnapshotReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kotae",
			Name:      "snapshot_reloads_total",
			Help:      "Corpus and schema snapshot reloads",
		},
		[]string{"kind", "status"}, // kind: "corpus" / "schema"
	)
)

// Register registers all collectors on reg. Call once at startup.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		RetrievalDuration,
		RetrievalDegradationsTotal,
		ValidationsTotal,
		GenerationRequestsTotal,
		GenerationRequestDuration,
		GenerationTokensTotal,
		EmbeddingRequestsTotal,
		EmbeddingCacheTotal,
		SnapshotReloadsTotal,
	)
}

// ObserveGeneration records one chat completion attempt.
func ObserveGeneration(model string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	GenerationRequestsTotal.WithLabelValues(model, status).Inc()
	if err == nil {
		GenerationRequestDuration.WithLabelValues(model).Observe(d.Seconds())
	}
}

// AddGenerationTokens records token usage reported by the API.
func AddGenerationTokens(model string, prompt, completion int) {
	GenerationTokensTotal.WithLabelValues(model, "prompt").Add(float64(prompt))
	GenerationTokensTotal.WithLabelValues(model, "completion").Add(float64(completion))
}
