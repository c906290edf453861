// Package metrics exposes prometheus instrumentation for the transfer job.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocsScrolled tracks documents pulled from Elasticsearch.
	DocsScrolled = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "es2loki",
			Subsystem: "transfer",
			Name:      "docs_scrolled_total",
			Help:      "Total documents read from the Elasticsearch source",
		},
	)

	// DocsSkipped tracks documents dropped by projection (missing timestamp, invalid labels).
	DocsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "es2loki",
			Subsystem: "transfer",
			Name:      "docs_skipped_total",
			Help:      "Total documents skipped during projection",
		},
		[]string{"reason"},
	)

	// DocsPushed tracks documents successfully pushed to Loki.
	DocsPushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "es2loki",
			Subsystem: "transfer",
			Name:      "docs_pushed_total",
			Help:      "Total documents pushed to the Loki sink",
		},
	)

	// BatchesFlushed tracks batches handed from the buffer to the sink pool.
	BatchesFlushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "es2loki",
			Subsystem: "transfer",
			Name:      "batches_flushed_total",
			Help:      "Total batches flushed to the sink worker",
		},
	)

	// SinkPushDuration tracks Loki push latency.
	SinkPushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "es2loki",
			Subsystem: "transfer",
			Name:      "sink_push_duration_seconds",
			Help:      "Time to push a batch to Loki",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// SinkPushRetries tracks non-2xx/exception retries on the Loki push.
	SinkPushRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "es2loki",
			Subsystem: "transfer",
			Name:      "sink_push_retries_total",
			Help:      "Total retries of a Loki push due to error or non-2xx response",
		},
	)

	// CheckpointSaves tracks successful checkpoint persistence calls.
	CheckpointSaves = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "es2loki",
			Subsystem: "transfer",
			Name:      "checkpoint_saves_total",
			Help:      "Total checkpoint saves after a successful push",
		},
	)

	// SinkQueueDepth tracks how many batches are waiting on the single sink worker.
	SinkQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "es2loki",
			Subsystem: "transfer",
			Name:      "sink_queue_depth",
			Help:      "Number of batches queued for the sink worker",
		},
	)

	// TransferSpeed tracks the current documents/second estimate.
	TransferSpeed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "es2loki",
			Subsystem: "transfer",
			Name:      "speed_docs_per_second",
			Help:      "Current estimated transfer speed in documents per second",
		},
	)

	// TransferETASeconds tracks the current estimated time to completion.
	TransferETASeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "es2loki",
			Subsystem: "transfer",
			Name:      "eta_seconds",
			Help:      "Current estimated seconds to completion",
		},
	)

	// TransferProgress tracks the fraction of total docs transferred, 0..1.
	TransferProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "es2loki",
			Subsystem: "transfer",
			Name:      "progress_ratio",
			Help:      "Fraction of total documents transferred so far",
		},
	)

	// HTTPRequestsTotal is the request counter for the ambient health/metrics
	// HTTP surface. It is registered and exported on /metrics; no handler or
	// middleware in this module increments it.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "es2loki",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests to the ambient observability surface",
		},
		[]string{"method", "path", "status"},
	)
)
