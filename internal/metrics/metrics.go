package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	lifecycleOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "section_installer",
			Subsystem: "lifecycle",
			Name:      "operations_total",
			Help:      "Lifecycle operations by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	batchItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "section_installer",
			Subsystem: "batch",
			Name:      "items_total",
			Help:      "Batch items processed by the manager facade.",
		},
		[]string{"operation", "outcome"},
	)

	adminRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "section_installer",
			Subsystem: "shopify",
			Name:      "request_duration_seconds",
			Help:      "Latency of Shopify Admin API requests.",
			Buckets:   prometheus.ExponentialBuckets(0.025, 2, 10), // 25ms to ~12s
		},
		[]string{"method", "status"},
	)

	adminRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "section_installer",
			Subsystem: "shopify",
			Name:      "retries_total",
			Help:      "Admin API requests retried after 429 or 5xx.",
		},
	)
)

func init() {
	Registry.MustRegister(
		lifecycleOperations,
		batchItems,
		adminRequestDuration,
		adminRetries,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordOperation counts one lifecycle operation.  A nil err is recorded
// as "success".
func RecordOperation(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	lifecycleOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordBatchItem counts one item of a facade batch.
func RecordBatchItem(operation string, ok bool) {
	outcome := "failed"
	if ok {
		outcome = "success"
	}
	batchItems.WithLabelValues(operation, outcome).Inc()
}

// ObserveAdminRequest records the latency of one Admin API round trip.
// status is 0 when no response was received.
func ObserveAdminRequest(method string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	adminRequestDuration.WithLabelValues(method, label).Observe(d.Seconds())
}

// RecordAdminRetry counts one retried Admin API request.
func RecordAdminRetry() {
	adminRetries.Inc()
}
