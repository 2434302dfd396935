package prometheus

import (
	"time"

	"github.com/TNZtims/bazaar-pos-sub000/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthSuccessCounter  prometheus.Counter
	AuthErrorsCounter   prometheus.Counter

	// Store context metrics
	StoreContextMissingCounter prometheus.Counter

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Stock ledger metrics
	StockOperationsCounter   prometheus.CounterVec
	InsufficientStockCounter prometheus.Counter
	ProductInventoryGauge    prometheus.GaugeVec

	// Sale lifecycle metrics
	SaleOperationsCounter prometheus.CounterVec

	// Realtime broadcast metrics
	BroadcastFailuresCounter prometheus.Counter
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	// Use metric prefix from configuration
	prefix := config.Metrics.Prefix

	// HTTP request metrics
	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration
	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Authentication metrics
	AuthAttemptsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
	)

	AuthSuccessCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_success_total",
			Help: "Total number of successful authentications",
		},
	)

	AuthErrorsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors",
		},
	)

	// Store context metrics
	StoreContextMissingCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_store_context_missing_total",
			Help: "Total number of requests without store context",
		},
	)

	// Database operation metrics
	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	// Stock ledger metrics
	StockOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_stock_operations_total",
			Help: "Total number of stock ledger operations",
		},
		[]string{"operation"},
	)

	InsufficientStockCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_insufficient_stock_total",
			Help: "Total number of stock operations rejected for insufficient stock",
		},
	)

	ProductInventoryGauge = *promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_product_inventory",
			Help: "Current available inventory level for products",
		},
		[]string{"product_id", "product_name"},
	)

	// Sale lifecycle metrics
	SaleOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_sale_operations_total",
			Help: "Total number of sale lifecycle operations",
		},
		[]string{"operation"},
	)

	// Realtime broadcast metrics
	BroadcastFailuresCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_broadcast_failures_total",
			Help: "Total number of failed realtime broadcast publishes",
		},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordStockOperation increments the counter for stock ledger operations
func RecordStockOperation(operation string) {
	StockOperationsCounter.WithLabelValues(operation).Inc()
}

// RecordSaleOperation increments the counter for sale lifecycle operations
func RecordSaleOperation(operation string) {
	SaleOperationsCounter.WithLabelValues(operation).Inc()
}

// UpdateProductInventory updates the gauge for product available inventory
func UpdateProductInventory(productID string, productName string, count float64) {
	ProductInventoryGauge.WithLabelValues(productID, productName).Set(count)
}

// RecordAuthError increments the auth error counter
func RecordAuthError() {
	AuthErrorsCounter.Inc()
}
