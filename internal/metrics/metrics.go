package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aidd_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aidd_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MessagesStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aidd_messages_stored_total",
			Help: "Total messages persisted",
		},
		[]string{"role"},
	)

	ConversationsCleared = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aidd_conversations_cleared_total",
			Help: "Total conversations soft-deleted",
		},
	)

	BotUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aidd_bot_updates_total",
			Help: "Total Telegram updates processed",
		},
		[]string{"kind"}, // "command", "text", "unsupported"
	)

	// LLM metrics
	LLMRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aidd_llm_request_duration_seconds",
			Help:    "Language model request duration",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	LLMFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aidd_llm_failures_total",
			Help: "Total failed language model requests",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aidd_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
