package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Webhooks accepted by the receiver
	WebhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhookq_webhooks_received_total",
			Help: "Total number of webhook payloads accepted and queued",
		},
		[]string{"event_type"},
	)

	// Webhooks rejected at ingestion (malformed JSON)
	WebhooksRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhookq_webhooks_rejected_total",
			Help: "Total number of webhook payloads rejected as malformed",
		},
	)

	// Duplicate deliveries collapsed by the idempotency key
	WebhooksDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhookq_webhooks_deduplicated_total",
			Help: "Total number of duplicate webhook deliveries collapsed at insert",
		},
	)

	// Entries retired as done
	EntriesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhookq_entries_processed_total",
			Help: "Total number of queue entries processed successfully",
		},
	)

	// Entries returned to pending after a handler error
	EntriesRetried = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhookq_entries_retried_total",
			Help: "Total number of queue entries requeued for retry",
		},
	)

	// Entries retired as terminally failed
	EntriesFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhookq_entries_failed_total",
			Help: "Total number of queue entries marked failed",
		},
	)

	// Stuck entries recovered by the sweeper
	EntriesRequeued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhookq_entries_requeued_total",
			Help: "Total number of stuck entries requeued by the sweeper",
		},
	)

	// Stuck entries the sweeper had to fail outright
	EntriesExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhookq_entries_expired_total",
			Help: "Total number of stuck entries failed by the sweeper",
		},
	)

	// Processor pass duration
	ProcessDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webhookq_process_duration_seconds",
			Help:    "Time taken for one processor pass over a claimed batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Sweeper errors counter
	SweepErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webhookq_sweep_errors_total",
			Help: "Total number of sweeper errors",
		},
	)
)
