package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline's Prometheus instruments.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AuthDenials     *prometheus.CounterVec
}

// NewMetrics creates and registers the pipeline metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "canopy_requests_total",
			Help: "Requests processed by the dispatch pipeline.",
		}, []string{"method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "canopy_request_duration_seconds",
			Help:    "Request latency through the full pipeline.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		AuthDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "canopy_auth_denials_total",
			Help: "Requests rejected by the authorization check.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.AuthDenials)
	return m
}

// RegisterSessionGauge exposes the live session count from a counting
// store. Only the in-memory backend can report this cheaply; Redis
// deployments track it server-side.
func RegisterSessionGauge(reg prometheus.Registerer, count func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "canopy_active_sessions",
		Help: "Sessions currently held by the store.",
	}, func() float64 {
		return float64(count())
	}))
}

// MetricsMiddleware records request count and latency.
func MetricsMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			m.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
			m.RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		})
	}
}
