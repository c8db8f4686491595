package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearroom_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clearroom_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Batch Metrics
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearroom_batches_total",
			Help: "Total number of batch requests by final status",
		},
		[]string{"status"},
	)

	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clearroom_batch_size",
			Help:    "Number of images per accepted batch",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clearroom_batch_duration_seconds",
			Help:    "End-to-end batch processing duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4min
		},
	)

	// Dispatch Metrics
	ImagesDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearroom_images_dispatched_total",
			Help: "Total number of per-image model dispatches by outcome",
		},
		[]string{"outcome"},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clearroom_dispatch_duration_seconds",
			Help:    "Single model dispatch duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 9),
		},
	)

	// Ledger Metrics
	CreditsConsumedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clearroom_credits_consumed_total",
			Help: "Total credits deducted from user balances",
		},
	)

	EntitlementDeniedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clearroom_entitlement_denied_total",
			Help: "Total batch requests denied for insufficient credits",
		},
	)

	// Billing Metrics
	SubscriptionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearroom_subscription_events_total",
			Help: "Total payment-provider webhook events by type",
		},
		[]string{"event_type"},
	)

	WebhookSignatureFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clearroom_webhook_signature_failures_total",
			Help: "Total webhook deliveries rejected for invalid signatures",
		},
	)
)

// RecordHTTPRequest records an HTTP request with its duration
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordBatch records one finished batch
func RecordBatch(status string, size int, duration float64) {
	BatchesTotal.WithLabelValues(status).Inc()
	BatchSize.Observe(float64(size))
	BatchDuration.Observe(duration)
}

// RecordDispatch records one per-image model dispatch
func RecordDispatch(outcome string, duration float64) {
	ImagesDispatchedTotal.WithLabelValues(outcome).Inc()
	DispatchDuration.Observe(duration)
}

// RecordCreditsConsumed records a ledger deduction
func RecordCreditsConsumed(count int) {
	CreditsConsumedTotal.Add(float64(count))
}

// RecordEntitlementDenied records a denied batch
func RecordEntitlementDenied() {
	EntitlementDeniedTotal.Inc()
}

// RecordSubscriptionEvent records a payment webhook event
func RecordSubscriptionEvent(eventType string) {
	SubscriptionEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordSignatureFailure records a rejected webhook delivery
func RecordSignatureFailure() {
	WebhookSignatureFailures.Inc()
}
