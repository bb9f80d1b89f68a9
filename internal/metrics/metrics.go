package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LedgerOperationsTotal tracks ledger operations by operation and outcome
	LedgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletd_ledger_operations_total",
			Help: "The total number of ledger operations",
		},
		[]string{"operation", "status"}, // deposit/withdraw/send/receive, success/rejected/failed
	)

	// LedgerOperationSeconds tracks time taken to commit a ledger operation
	LedgerOperationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walletd_ledger_operation_seconds",
			Help:    "Time taken to commit a ledger operation in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// InsufficientFundsTotal tracks withdrawals rejected for lack of balance
	InsufficientFundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "walletd_insufficient_funds_total",
		Help: "The total number of operations rejected for insufficient funds",
	})

	// StoreOperations tracks database operations
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletd_store_operations_total",
			Help: "The total number of store operations",
		},
		[]string{"operation", "status"},
	)

	// PendingQueueLength tracks the number of receives awaiting confirmation
	PendingQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "walletd_pending_queue_length",
		Help: "The number of receive transactions currently awaiting confirmation",
	})

	// WorkersActive tracks the number of active confirmation workers
	WorkersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "walletd_workers_active",
		Help: "The number of confirmation workers currently active",
	})

	// ConfirmationsTotal tracks confirmation outcomes
	ConfirmationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletd_confirmations_total",
			Help: "The total number of receive confirmations processed",
		},
		[]string{"result"}, // confirmed, rejected, deferred, failed
	)

	// GatewayRequestsTotal tracks chain gateway requests by status
	GatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walletd_gateway_requests_total",
			Help: "The total number of chain gateway requests",
		},
		[]string{"status"},
	)
)

// RecordLedgerOperation records a ledger operation with the given outcome
func RecordLedgerOperation(operation, status string) {
	LedgerOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordLedgerDuration records the time taken to commit a ledger operation
func RecordLedgerDuration(operation string, seconds float64) {
	LedgerOperationSeconds.WithLabelValues(operation).Observe(seconds)
}

// RecordStoreOperation records a store operation
func RecordStoreOperation(operation, status string) {
	StoreOperations.WithLabelValues(operation, status).Inc()
}

// RecordConfirmation records a processed receive confirmation
func RecordConfirmation(result string) {
	ConfirmationsTotal.WithLabelValues(result).Inc()
}

// RecordGatewayRequest records a chain gateway request with the given status
func RecordGatewayRequest(status string) {
	GatewayRequestsTotal.WithLabelValues(status).Inc()
}
