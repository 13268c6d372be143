// Package metrics holds the pipeline's Prometheus collectors and the small
// ops HTTP server that exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraudstream_transactions_generated_total",
		Help: "Transactions put on the event queue, labeled by emitter",
	}, []string{"emitter"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fraudstream_queue_depth",
		Help: "Transactions currently buffered in the event queue",
	})

	MessagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraudstream_messages_published_total",
		Help: "Messages handed to the transport, labeled by topic and outcome",
	}, []string{"topic", "outcome"})

	PublishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fraudstream_publish_duration_seconds",
		Help:    "Latency of synchronous publishes including the delivery report",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
	}, []string{"topic"})

	MessagesConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraudstream_messages_consumed_total",
		Help: "Messages received by a consumer, labeled by topic and outcome",
	}, []string{"topic", "outcome"})

	AlertsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraudstream_alerts_emitted_total",
		Help: "Fraud alerts produced by the detector, labeled by fraud type",
	}, []string{"fraud_type"})

	TrackedUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fraudstream_tracked_users",
		Help: "Users with in-memory history in the detector",
	})

	IngestRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraudstream_ingest_requests_total",
		Help: "gRPC ingestion requests, labeled by status code",
	}, []string{"code"})

	AlertsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fraudstream_alerts_archived_total",
		Help: "Alerts written to the archive database",
	})
)

// Outcome labels shared by the publish and consume counters.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeMalformed = "malformed"
	OutcomeDuplicate = "duplicate"
)
