package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	LedgerOperations *prometheus.CounterVec
	LedgerDuration   *prometheus.HistogramVec
	LedgerAmount     *prometheus.HistogramVec

	// Account metrics
	AccountsCreated prometheus.Counter

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxFailed    prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Dependency metrics
	BreakerState *prometheus.GaugeVec

	// Authentication metrics
	AuthFailures *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Ledger metrics
		LedgerOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletledger_operations_total",
				Help: "Total ledger operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		LedgerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "walletledger_operation_duration_seconds",
				Help:    "Duration of ledger operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		LedgerAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "walletledger_operation_amount",
				Help:    "Amounts moved by successful operations, in minor units",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000, 100000000},
			},
			[]string{"operation"},
		),

		// Account metrics
		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "walletledger_accounts_created_total",
			Help: "Total number of accounts created",
		}),

		// Outbox metrics
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "walletledger_outbox_published_total",
			Help: "Total outbox events published",
		}),
		OutboxFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "walletledger_outbox_failed_total",
			Help: "Total outbox publish failures",
		}),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "walletledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Dependency metrics
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "walletledger_circuit_breaker_open",
				Help: "1 while the breaker for a dependency is not closed",
			},
			[]string{"dependency"},
		),

		// Authentication metrics
		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "walletledger_auth_failures_total",
				Help: "Total authentication failures",
			},
			[]string{"reason"},
		),

		// Rate limiting metrics
		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "walletledger_rate_limit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		}),
	}
}

// ObserveLedgerOperation implements usecase.Observer.
func (m *Metrics) ObserveLedgerOperation(op, outcome string, duration time.Duration) {
	m.LedgerOperations.WithLabelValues(op, outcome).Inc()
	m.LedgerDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// ObserveLedgerAmount implements usecase.Observer.
func (m *Metrics) ObserveLedgerAmount(op string, amount int64) {
	m.LedgerAmount.WithLabelValues(op).Observe(float64(amount))
}

// ObserveBreakerState records whether the named dependency's breaker is open.
func (m *Metrics) ObserveBreakerState(dependency string, closed bool) {
	v := 1.0
	if closed {
		v = 0
	}
	m.BreakerState.WithLabelValues(dependency).Set(v)
}

// ObserveAccountCreated counts a newly opened account.
func (m *Metrics) ObserveAccountCreated() {
	m.AccountsCreated.Inc()
}

// ObservePublished implements eventpublisher.Recorder.
func (m *Metrics) ObservePublished() {
	m.OutboxPublished.Inc()
}

// ObserveFailed implements eventpublisher.Recorder.
func (m *Metrics) ObserveFailed() {
	m.OutboxFailed.Inc()
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveAuthFailure counts a rejected credential by reason.
func (m *Metrics) ObserveAuthFailure(reason string) {
	m.AuthFailures.WithLabelValues(reason).Inc()
}

// ObserveRateLimited counts a throttled request.
func (m *Metrics) ObserveRateLimited() {
	m.RateLimitHits.Inc()
}
