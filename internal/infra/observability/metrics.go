package observability

import (
	"time"

	"github.com/boddenberg/fuel-portal-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Notification results.
const (
	ResultSent   = "sent"
	ResultFailed = "failed"
)

// Metrics holds all Prometheus metrics for the portal.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	creditAlerts    *prometheus.CounterVec
	logins          *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it, so tests can build as many as they like.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fuelportal_request_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelportal_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelportal_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelportal_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelportal_notifications_total",
				Help: "Notification deliveries by channel and result.",
			},
			[]string{"channel", "result"},
		),
		creditAlerts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelportal_credit_alerts_total",
				Help: "Credit alerts raised by threshold.",
			},
			[]string{"threshold"},
		),
		logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelportal_logins_total",
				Help: "Login attempts by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrNotification counts one delivery attempt on a channel.
func (m *Metrics) IncrNotification(channel string, sent bool) {
	result := ResultFailed
	if sent {
		result = ResultSent
	}
	m.notifications.WithLabelValues(channel, result).Inc()
}

// IncrCreditAlert counts a raised credit alert.
func (m *Metrics) IncrCreditAlert(threshold string) {
	m.creditAlerts.WithLabelValues(threshold).Inc()
}

// IncrLogin counts a login attempt ("token", "2fa", "rejected").
func (m *Metrics) IncrLogin(outcome string) {
	m.logins.WithLabelValues(outcome).Inc()
}

// NotificationSnapshot returns the counters behind GET /api/metrics/notifications.
func (m *Metrics) NotificationSnapshot() *domain.NotificationMetrics {
	emailSent := getCounterValue(m.notifications, "email", ResultSent)
	emailFailed := getCounterValue(m.notifications, "email", ResultFailed)
	waSent := getCounterValue(m.notifications, "whatsapp", ResultSent)
	waFailed := getCounterValue(m.notifications, "whatsapp", ResultFailed)

	var alerts float64
	for _, th := range []string{"70", "80", "90", "100"} {
		alerts += getCounterValue(m.creditAlerts, th)
	}

	hits := getCounterValue(m.cacheHits, "dashboard")
	misses := getCounterValue(m.cacheMisses, "dashboard")

	failureRate := float64(0)
	if total := emailSent + emailFailed + waSent + waFailed; total > 0 {
		failureRate = (emailFailed + waFailed) / total
	}
	cacheHitRate := float64(0)
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	return &domain.NotificationMetrics{
		EmailSent:      int64(emailSent),
		EmailFailed:    int64(emailFailed),
		WhatsAppSent:   int64(waSent),
		WhatsAppFailed: int64(waFailed),
		CreditAlerts:   int64(alerts),
		FailureRate:    failureRate,
		CacheHitRate:   cacheHitRate,
		Period:         "all_time",
	}
}

// getCounterValue extracts the current value of one series of a CounterVec.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
