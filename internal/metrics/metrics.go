package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentsight_events_received_total",
			Help: "Total number of submitted events by outcome",
		},
		[]string{"status"},
	)

	EventBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentsight_event_bytes_total",
			Help: "Total bytes of event payload received",
		},
	)

	StorageErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentsight_storage_errors_total",
			Help: "Total number of durable-layer failures",
		},
	)

	// Broadcast metrics
	ObserversConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentsight_observers_connected",
			Help: "Number of currently connected websocket observers",
		},
	)

	BroadcastDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentsight_broadcast_drops_total",
			Help: "Total number of observers evicted for falling behind",
		},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentsight_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"client"},
	)

	// Retention metrics
	EventsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agentsight_events_pruned_total",
			Help: "Total number of events removed by retention",
		},
	)
)
