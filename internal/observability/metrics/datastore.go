package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics contains Prometheus metrics for the datastore and the
// field trial service.
type DatastoreMetrics struct {
	// Service outcomes
	operationsTotal      *prometheus.CounterVec
	validationRejections *prometheus.CounterVec
	cascadeDeletedRows   *prometheus.HistogramVec

	// SQL statements traced through the gorm logger
	queriesTotal  *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec

	// Connection pool
	connectionsOpen  prometheus.Gauge
	connectionsInUse prometheus.Gauge
	connectionsIdle  prometheus.Gauge

	collectors []prometheus.Collector
}

// NewDatastoreMetrics creates and registers new datastore metrics
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DatastoreMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trialbase_operations_total",
			Help: "Total number of field trial service operations",
		},
		[]string{"operation", "status"}, // status: success, rejected, error
	)

	m.validationRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trialbase_validation_rejections_total",
			Help: "Total number of writes rejected by a validation rule",
		},
		[]string{"rule"},
	)

	m.cascadeDeletedRows = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trialbase_cascade_deleted_rows",
			Help:    "Rows removed by one plot subtree deletion",
			Buckets: prometheus.ExponentialBuckets(1, BucketFactor2, BucketCount12), // 1 to 2048
		},
		[]string{"kind"}, // kind: plots, observations, images
	)

	m.queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_queries_total",
			Help: "Total number of SQL statements",
		},
		[]string{"verb", "status"},
	)

	m.queryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datastore_query_duration_seconds",
			Help:    "Time taken by SQL statements",
			Buckets: prometheus.ExponentialBuckets(BucketStart100us, BucketFactor2, BucketCount15), // 0.1ms to ~1.6s
		},
		[]string{"verb"},
	)

	m.connectionsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "datastore_connections_open",
		Help: "Open database connections",
	})
	m.connectionsInUse = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "datastore_connections_in_use",
		Help: "Database connections in use",
	})
	m.connectionsIdle = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "datastore_connections_idle",
		Help: "Idle database connections",
	})

	m.collectors = []prometheus.Collector{
		m.operationsTotal, m.validationRejections, m.cascadeDeletedRows,
		m.queriesTotal, m.queryDuration,
		m.connectionsOpen, m.connectionsInUse, m.connectionsIdle,
	}
}

// Describe implements the Collector interface
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordOperation counts a service operation by outcome.
func (m *DatastoreMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordValidationRejection counts a write rejected by rule.
func (m *DatastoreMetrics) RecordValidationRejection(rule string) {
	if rule == "" {
		rule = "unknown"
	}
	m.validationRejections.WithLabelValues(rule).Inc()
}

// RecordCascadeDelete observes the size of one subtree deletion.
func (m *DatastoreMetrics) RecordCascadeDelete(plots, observations, images int64) {
	m.cascadeDeletedRows.WithLabelValues(KindPlots).Observe(float64(plots))
	m.cascadeDeletedRows.WithLabelValues(KindObservations).Observe(float64(observations))
	m.cascadeDeletedRows.WithLabelValues(KindImages).Observe(float64(images))
}

// ObserveQuery records one SQL statement. Its signature matches
// logger.QueryObserver.
func (m *DatastoreMetrics) ObserveQuery(verb string, elapsed time.Duration, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.queriesTotal.WithLabelValues(verb, status).Inc()
	m.queryDuration.WithLabelValues(verb).Observe(elapsed.Seconds())
}

// UpdateConnectionStats copies the pool statistics into the gauges.
func (m *DatastoreMetrics) UpdateConnectionStats(stats sql.DBStats) {
	m.connectionsOpen.Set(float64(stats.OpenConnections))
	m.connectionsInUse.Set(float64(stats.InUse))
	m.connectionsIdle.Set(float64(stats.Idle))
}
