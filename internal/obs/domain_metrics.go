package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersCreatedTotal counts placed orders by payment method.
	OrdersCreatedTotal *prometheus.CounterVec
	// OrderTotalMismatchTotal counts checkouts whose client total disagreed with the server total.
	OrderTotalMismatchTotal *prometheus.CounterVec
	// OrderStatusChangesTotal counts lifecycle transitions.
	OrderStatusChangesTotal *prometheus.CounterVec
	// CartMutationsTotal counts cart operations by kind and outcome.
	CartMutationsTotal *prometheus.CounterVec
	// EnquiriesTotal counts contact form submissions by outcome.
	EnquiriesTotal *prometheus.CounterVec
	// RateLimitedTotal counts requests rejected by a rate limiter.
	RateLimitedTotal *prometheus.CounterVec
	// EventPublishTotal counts domain event fan-out outcomes per sink.
	EventPublishTotal *prometheus.CounterVec
	// MediaUploadLatency records upload round trips in milliseconds.
	MediaUploadLatency *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersCreatedTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Count of orders placed by payment method.",
		}, []string{"payment_method"}))
		OrderTotalMismatchTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_total_mismatch_total",
			Help:      "Count of checkouts where the client total differed from the computed total.",
		}, []string{"action"}))
		OrderStatusChangesTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_changes_total",
			Help:      "Count of order lifecycle transitions.",
		}, []string{"field", "to"}))
		CartMutationsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart mutations by operation and result.",
		}, []string{"op", "result"}))
		EnquiriesTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enquiries_total",
			Help:      "Count of public form submissions by form and result.",
		}, []string{"form", "result"}))
		RateLimitedTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Count of requests rejected by a rate limiter.",
		}, []string{"scope"}))
		EventPublishTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_total",
			Help:      "Count of domain event deliveries per sink and result.",
		}, []string{"sink", "result"}))
		MediaUploadLatency = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "media_upload_duration_ms",
			Help:      "Latency of media uploads in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"result"}))
	})
}

// Inc increments vec for labels when the collector has been registered.
// Packages call it unconditionally so tests need not register metrics.
func Inc(vec *prometheus.CounterVec, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Inc()
}

// Observe records value on vec when the collector has been registered.
func Observe(vec *prometheus.HistogramVec, value float64, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Observe(value)
}
