// Package metrics provides Prometheus instrumentation for the synthetic
// asset engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MintsTotal counts successful mint operations.
	MintsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "etfinity_mints_total",
		Help: "Total number of successful mint operations",
	})

	// RedeemsTotal counts successful redeem operations.
	RedeemsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "etfinity_redeems_total",
		Help: "Total number of successful redeem operations",
	})

	// LiquidationsTotal counts successful liquidations.
	LiquidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "etfinity_liquidations_total",
		Help: "Total number of successful liquidations",
	})

	// OperationsRejected counts rejected operations by reason.
	OperationsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etfinity_operations_rejected_total",
		Help: "Operations rejected before commit",
	}, []string{"operation", "reason"})

	// ProtocolPaused is 1 while the pause switch is set.
	ProtocolPaused = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "etfinity_protocol_paused",
		Help: "Whether the protocol pause switch is set",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "etfinity_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etfinity_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "etfinity_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the API surface is small enough
		// that cardinality stays bounded.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
