package storage

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds the Prometheus metrics of a store
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	documentBytes     *prometheus.HistogramVec
}

// NewMetrics creates the store metrics and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docmap_storage_operations_total",
				Help: "Total number of storage operations",
			},
			[]string{"collection", "operation", "status"},
		),

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docmap_storage_operation_duration_seconds",
				Help:    "Storage operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"collection", "operation"},
		),

		documentBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docmap_storage_document_bytes",
				Help:    "Size of written documents in bytes",
				Buckets: prometheus.ExponentialBuckets(64, 4, 8),
			},
			[]string{"collection"},
		),
	}
}

// RecordOperation records the outcome and duration of one operation.
func (m *Metrics) RecordOperation(collection, operation string, start time.Time, err error) {
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	m.operationsTotal.WithLabelValues(collection, operation, status).Inc()
	m.operationDuration.WithLabelValues(collection, operation).Observe(time.Since(start).Seconds())
}

// RecordDocumentSize records the encoded size of a written document.
func (m *Metrics) RecordDocumentSize(collection string, size int) {
	m.documentBytes.WithLabelValues(collection).Observe(float64(size))
}
