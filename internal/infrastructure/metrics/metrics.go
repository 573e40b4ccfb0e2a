package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion metrics exposed on /metrics.
var (
	WebhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storepulse_webhooks_received_total",
		Help: "Verified webhook deliveries by topic.",
	}, []string{"topic"})

	WebhooksDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storepulse_webhooks_duplicate_total",
		Help: "Webhook deliveries skipped as duplicates.",
	})

	IngestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storepulse_ingest_failures_total",
		Help: "Mutation intents that failed to apply, by operation.",
	}, []string{"operation"})

	SyncRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storepulse_sync_records_total",
		Help: "Records ingested by bulk sync, by resource.",
	}, []string{"resource"})

	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storepulse_sync_duration_seconds",
		Help:    "Wall time of one tenant bulk sync.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)
