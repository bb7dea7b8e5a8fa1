package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// Onboarding metrics
	ApplicationsSubmitted prometheus.Counter
	ApplicationDecisions  *prometheus.CounterVec
	ApprovalFailures      *prometheus.CounterVec
	ApprovalLatency       prometheus.Histogram
	AccountsProvisioned   *prometheus.CounterVec
	Notifications         *prometheus.CounterVec

	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	OutboxRetries           *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	// Redis metrics
	RedisOperations *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg. A nil reg
// leaves them unregistered, which is what tests want.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ApplicationsSubmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "applications_submitted_total",
			Help:      "Total number of registration applications submitted",
		}),
		ApplicationDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "application_decisions_total",
			Help:      "Total number of applications approved or rejected",
		}, []string{"decision"}),
		ApprovalFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "approval_failures_total",
			Help:      "Approvals that did not commit, by error kind",
		}, []string{"kind"}),
		ApprovalLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "approval_duration_seconds",
			Help:      "Time spent in the approval transaction",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		AccountsProvisioned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_provisioned_total",
			Help:      "Accounts created by approvals and bootstrap",
		}, []string{"role"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Credential notifications by delivery status",
		}, []string{"status"}),

		OutboxEventsProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_retry_attempts_total",
			Help:      "Total number of retry attempts for outbox events",
		}, []string{"event_type"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		RedisOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redis_operations_total",
			Help:      "Total number of Redis operations",
		}, []string{"operation", "status"}),
	}
}

func (m *Metrics) ApplicationSubmitted() {
	if m == nil {
		return
	}
	m.ApplicationsSubmitted.Inc()
}

func (m *Metrics) Decision(decision string) {
	if m == nil {
		return
	}
	m.ApplicationDecisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) ApprovalFailed(kind string) {
	if m == nil {
		return
	}
	m.ApprovalFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveApproval(d time.Duration) {
	if m == nil {
		return
	}
	m.ApprovalLatency.Observe(d.Seconds())
}

func (m *Metrics) AccountProvisioned(role string) {
	if m == nil {
		return
	}
	m.AccountsProvisioned.WithLabelValues(role).Inc()
}

func (m *Metrics) Notification(status string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(status).Inc()
}

func (m *Metrics) OutboxProcessed(d time.Duration) {
	if m == nil {
		return
	}
	m.OutboxEventsProcessed.Inc()
	m.OutboxProcessingLatency.Observe(d.Seconds())
}

func (m *Metrics) OutboxFailed(eventType string, retrying bool) {
	if m == nil {
		return
	}
	if retrying {
		m.OutboxRetries.WithLabelValues(eventType).Inc()
		return
	}
	m.OutboxEventsFailed.Inc()
}

func (m *Metrics) HTTPRequest(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPLatency.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) RedisOperation(operation string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RedisOperations.WithLabelValues(operation, status).Inc()
}
