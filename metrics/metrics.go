// Package metrics exposes Prometheus metrics for the recording registry.
// Labels stay low-cardinality: no recording ids or storage keys.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OpCreate = "create"
	OpList   = "list"
	OpDelete = "delete"
	OpAudit  = "audit"
)

var (
	// OperationsTotal counts registry operations by operation and error kind ("ok" on success).
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "media_registry_operations_total",
		Help: "Total number of registry operations, by operation and result.",
	}, []string{"op", "result"})

	// OperationDuration observes registry operation latency.
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "media_registry_operation_duration_seconds",
		Help:    "Registry operation latency, by operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	// RollbackTotal counts blob rollbacks after a failed metadata insert, by outcome.
	RollbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "media_registry_blob_rollback_total",
		Help: "Blob rollbacks after metadata insert failures, by outcome (ok/failed/skipped).",
	}, []string{"outcome"})

	// UploadedBytesTotal sums the declared size of committed recordings.
	UploadedBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "media_registry_uploaded_bytes_total",
		Help: "Total bytes of successfully created recordings.",
	})

	// DanglingRows is the number of metadata rows without a blob found by the last audit.
	DanglingRows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "media_registry_dangling_rows",
		Help: "Metadata rows whose blob was missing at the last audit.",
	})
)
