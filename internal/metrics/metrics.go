package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	// Message log
	MessageWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_message_writes_total",
			Help: "Message log mutations",
		},
		[]string{"op"}, // "append", "update" or "delete"
	)

	// Range cache
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_cache_lookups_total",
			Help: "Range cache lookups",
		},
		[]string{"result"}, // "hit" or "miss"
	)

	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_cache_invalidations_total",
			Help: "Full range cache invalidations",
		},
	)

	CachePagesPatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_cache_pages_patched_total",
			Help: "Cached pages rewritten in place after an edit",
		},
	)

	// Live sessions
	WSSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_sessions",
			Help: "Currently registered WebSocket sessions",
		},
	)

	WSFramesBroadcast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ws_frames_broadcast_total",
			Help: "Frames enqueued to sessions",
		},
		[]string{"kind"}, // "text" or "presence"
	)

	WSSendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_ws_send_failures_total",
			Help: "Frames that could not be delivered to a session",
		},
	)
)
