package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cowork_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cowork_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	UsersRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cowork_users_registered_total",
			Help: "Total users registered",
		},
	)

	SwipesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cowork_swipes_total",
			Help: "Total swipes recorded",
		},
		[]string{"direction"},
	)

	MatchesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cowork_matches_created_total",
			Help: "Total matches created",
		},
	)

	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cowork_messages_sent_total",
			Help: "Total chat messages sent",
		},
	)

	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cowork_session_transitions_total",
			Help: "Total session state transitions",
		},
		[]string{"transition"}, // "created", "accepted", "declined", "cancelled", "completed", "auto_cancelled"
	)

	SSEStreams = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cowork_sse_streams",
			Help: "Open SSE streams",
		},
		[]string{"kind"}, // "messages", "sessions", "session_events"
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cowork_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	// Infrastructure metrics
	RedisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cowork_redis_latency_seconds",
			Help:    "Redis operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)

	PostgresLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cowork_postgres_latency_seconds",
			Help:    "PostgreSQL query latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1},
		},
	)
)
