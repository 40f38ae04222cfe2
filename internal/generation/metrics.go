package generation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	genRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "story_engine_generation_requests_total",
			Help: "Total number of requests to the generation backend.",
		},
		[]string{"backend", "model", "status"},
	)
	genRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "story_engine_generation_request_duration_seconds",
			Help:    "Histogram of generation request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "model"},
	)
	genPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "story_engine_generation_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(250, 250, 20),
		},
		[]string{"backend", "model"},
	)
	genCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "story_engine_generation_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 20),
		},
		[]string{"backend", "model"},
	)
)
