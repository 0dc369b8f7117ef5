package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// HTTPAccess logs every request and records RED metrics.
func HTTPAccess(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(sw, r)
			d := time.Since(start)

			path := RoutePath(r.URL.Path)
			status := strconv.Itoa(sw.code)
			httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(d.Seconds())
			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()

			lvl := log.Info
			if sw.code >= http.StatusInternalServerError {
				lvl = log.Error
			}
			lvl("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.code),
				zap.Duration("duration", d),
				zap.String("request_id", w.Header().Get("X-Request-ID")),
			)
		})
	}
}

// RoutePath collapses uuid segments so metric labels stay bounded.
func RoutePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		if _, err := uuid.Parse(s); err == nil {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
