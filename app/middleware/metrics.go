// Package middleware contains HTTP middleware functions and instrumentation for request processing
package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Total HTTP requests partitioned by method, route, and status code
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration in seconds partitioned by method, route, and status code
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// In-flight HTTP requests
	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Counter use case invocations partitioned by operation and outcome
	counterOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "counter_operations_total",
			Help: "Total number of counter operations by outcome",
		},
		[]string{"operation", "result"},
	)

	// Last value observed for each counter
	counterValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "counter_value",
			Help: "Last observed value of a counter",
		},
		[]string{"counter_id"},
	)
)

// Metrics returns a Fiber v3 middleware that records basic Prometheus metrics.
// Labels are kept low-cardinality by using the matched route path when available.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}

		labels := prometheus.Labels{
			"method": c.Method(),
			"route":  route,
			"status": strconv.Itoa(c.Response().StatusCode()),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())

		return err
	}
}

// Counter operation outcomes
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultBusy     = "busy"
	ResultError    = "error"
)

// RecordCounterOperation counts one use case invocation
func RecordCounterOperation(operation, result string) {
	counterOperationsTotal.WithLabelValues(operation, result).Inc()
}

// ObserveCounterValue publishes the latest value of a counter
func ObserveCounterValue(id string, value int64) {
	counterValue.WithLabelValues(id).Set(float64(value))
}
