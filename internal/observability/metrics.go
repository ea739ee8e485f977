// Package observability provides Prometheus metrics and logger setup.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ledger metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	OperationErrors   *prometheus.CounterVec
	AmountMoved       *prometheus.CounterVec
	PoolTotalStaked   *prometheus.GaugeVec

	// Event fan-out metrics
	EventsPublished   *prometheus.CounterVec
	StreamSubscribers prometheus.Gauge

	// Clock metrics
	RPCCallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	DBTxRetries     *prometheus.CounterVec

	// Health metrics
	LastSuccessfulOperation prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "staking_ledger"
	}

	return &Metrics{
		// Ledger metrics
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Total number of ledger operations by status",
		}, []string{"operation", "status"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Ledger operation latency in seconds, including commit",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		OperationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_errors_total",
			Help:      "Total number of failed ledger operations by error kind",
		}, []string{"operation", "kind"}),
		AmountMoved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "amount_total",
			Help:      "Total asset units moved by committed operations",
		}, []string{"operation"}),
		PoolTotalStaked: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "pool_total_staked",
			Help:      "Total staked per pool after the last committed operation",
		}, []string{"pool"}),

		// Event fan-out metrics
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of ledger events delivered per sink and status",
		}, []string{"sink", "status"}),
		StreamSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "stream_subscribers",
			Help:      "Current number of websocket event subscribers",
		}),

		// Clock metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
		DBTxRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "tx_retries_total",
			Help:      "Total number of retried transactions by SQLSTATE",
		}, []string{"database", "code"}),

		// Health metrics
		LastSuccessfulOperation: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_operation_timestamp",
			Help:      "Unix timestamp of the last committed ledger operation",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordOperation records the outcome of one ledger operation.
// kind is empty on success.
func RecordOperation(operation, kind string, seconds float64) {
	status := "success"
	if kind != "" {
		status = "error"
		DefaultMetrics.OperationErrors.WithLabelValues(operation, kind).Inc()
	}
	DefaultMetrics.OperationsTotal.WithLabelValues(operation, status).Inc()
	DefaultMetrics.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordCommitted records the effect of a committed operation.
func RecordCommitted(operation, pool string, amount, totalStaked uint64, timestamp int64) {
	DefaultMetrics.AmountMoved.WithLabelValues(operation).Add(float64(amount))
	DefaultMetrics.PoolTotalStaked.WithLabelValues(pool).Set(float64(totalStaked))
	DefaultMetrics.LastSuccessfulOperation.Set(float64(timestamp))
}

// RecordEventsPublished records delivery of events to a sink.
func RecordEventsPublished(sink string, count int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.EventsPublished.WithLabelValues(sink, status).Add(float64(count))
}

// UpdateStreamSubscribers sets the websocket subscriber gauge.
func UpdateStreamSubscribers(n int) {
	DefaultMetrics.StreamSubscribers.Set(float64(n))
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordTxRetry records a retried database transaction.
func RecordTxRetry(database, code string) {
	DefaultMetrics.DBTxRetries.WithLabelValues(database, code).Inc()
}
