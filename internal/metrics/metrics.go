package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Counter: resolved replies by classified type and resolution source.
	RepliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_replies_total",
			Help: "Total resolved replies by response type and source.",
		},
		[]string{"response_type", "source"},
	)

	// Histogram: end-to-end resolution time by source.
	ResolveSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reply_resolve_seconds",
			Help:    "Reply resolution time in seconds.",
			Buckets: []float64{0.0005, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"source"},
	)

	// Counter: cache operations (get/put/clear) and their outcome.
	CacheOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Reply cache operations by operation and result.",
		},
		[]string{"operation", "result"},
	)

	// Counter: external generator calls by model and status.
	AICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_api_calls_total",
			Help: "Calls to the external text generator by model and status.",
		},
		[]string{"model", "status"},
	)

	// Counter: history/template store operations.
	StoreOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_operations_total",
			Help: "History and template store operations by operation and result.",
		},
		[]string{"operation", "result"},
	)

	// Histogram: HTTP latency in seconds.
	HTTPLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"path", "method", "status_code"},
	)
)

var registerOnce sync.Once

// Register is called once in main() to register metrics.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RepliesTotal,
			ResolveSeconds,
			CacheOperationsTotal,
			AICallsTotal,
			StoreOperationsTotal,
			HTTPLatencySeconds,
		)
	})
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware measures latency for each HTTP request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rec, r)

		HTTPLatencySeconds.
			WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(rec.statusCode)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}
