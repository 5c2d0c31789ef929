package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibeu_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records store call latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vibeu_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// StoreErrors counts classified store failures.
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibeu_store_errors_total",
		Help: "Total store errors by classification",
	}, []string{"class"})

	// LikeRacesResolved counts like inserts that lost a uniqueness race and resolved as no-ops.
	LikeRacesResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vibeu_like_races_resolved_total",
		Help: "Concurrent duplicate like inserts resolved without error",
	})

	// InteractionsTotal counts interaction writes by kind (post, like, unlike, comment).
	InteractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibeu_interactions_total",
		Help: "Total interaction writes by kind",
	}, []string{"kind"})

	// NotificationsCreated counts persisted notifications by kind.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibeu_notifications_created_total",
		Help: "Total notifications created by kind",
	}, []string{"kind"})

	// EventHandlerFailures counts event handler errors by handler and event.
	EventHandlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibeu_event_handler_failures_total",
		Help: "Domain event handler failures",
	}, []string{"handler", "event"})

	// RealtimeSubscriptions is the gauge of live hub subscriptions.
	RealtimeSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vibeu_realtime_subscriptions",
		Help: "Number of active realtime subscriptions",
	})

	// RealtimeDeliveries counts events enqueued to subscriber queues by event type.
	RealtimeDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibeu_realtime_deliveries_total",
		Help: "Total realtime events enqueued to subscribers",
	}, []string{"event_type"})

	// RealtimeDrops counts events dropped due to backpressure by hub and reason.
	RealtimeDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibeu_realtime_backpressure_drops_total",
		Help: "Total realtime events dropped due to backpressure",
	}, []string{"hub", "reason"})

	// CircuitBreakerTransitions counts breaker state changes by breaker name and new state.
	CircuitBreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibeu_circuit_breaker_transitions_total",
		Help: "Circuit breaker state transitions",
	}, []string{"name", "to"})

	// EventsExported counts domain events exported to the message bus.
	EventsExported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibeu_events_exported_total",
		Help: "Domain events exported to the message bus by subject and result",
	}, []string{"subject", "result"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
