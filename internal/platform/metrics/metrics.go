package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for EPP command execution.
type Metrics struct {
	EppRequests         *prometheus.CounterVec
	EppRequestDuration  *prometheus.HistogramVec
	TransactionAttempts prometheus.Histogram
	TransactionRetries  *prometheus.CounterVec
	NotificationsFailed prometheus.Counter
	PremiumCacheLookups *prometheus.CounterVec
	ActivityDropped     prometheus.Counter
}

// New creates and registers all collectors with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers collectors with reg, so tests can use a
// private registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EppRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_epp_requests_total",
			Help: "EPP commands handled, by command, result code and outcome",
		}, []string{"command", "result", "outcome"}),
		EppRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "registry_epp_request_duration_seconds",
			Help:    "End to end EPP command latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		TransactionAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "registry_transaction_attempts",
			Help:    "Attempts needed per transaction",
			Buckets: []float64{1, 2, 3, 4, 5, 8, 13},
		}),
		TransactionRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_transaction_retries_total",
			Help: "Transaction attempts retried after a retryable fault",
		}, []string{"isolation"}),
		NotificationsFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "registry_notifications_failed_total",
			Help: "Post-commit notifications that could not be published",
		}),
		PremiumCacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_premium_cache_lookups_total",
			Help: "Premium price cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		ActivityDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "registry_activity_events_dropped_total",
			Help: "Activity log events that were not persisted",
		}),
	}
}

// ObserveEppRequest records one handled command.
func (m *Metrics) ObserveEppRequest(command, result, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.EppRequests.WithLabelValues(command, result, outcome).Inc()
	m.EppRequestDuration.WithLabelValues(command).Observe(seconds)
}

// ObserveTransaction records the attempt count of a finished transaction.
func (m *Metrics) ObserveTransaction(attempts int) {
	if m == nil {
		return
	}
	m.TransactionAttempts.Observe(float64(attempts))
}

// IncTransactionRetry counts one retried attempt.
func (m *Metrics) IncTransactionRetry(isolation string) {
	if m == nil {
		return
	}
	m.TransactionRetries.WithLabelValues(isolation).Inc()
}

// IncNotificationFailed counts one dropped notification.
func (m *Metrics) IncNotificationFailed() {
	if m == nil {
		return
	}
	m.NotificationsFailed.Inc()
}

// IncPremiumCacheLookup counts one cache lookup by result.
func (m *Metrics) IncPremiumCacheLookup(result string) {
	if m == nil {
		return
	}
	m.PremiumCacheLookups.WithLabelValues(result).Inc()
}

// IncActivityDropped counts one activity event that was not persisted.
func (m *Metrics) IncActivityDropped() {
	if m == nil {
		return
	}
	m.ActivityDropped.Inc()
}
