package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds per-callable request counters and latency histograms.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plan_sharing",
			Name:      "callable_requests_total",
			Help:      "Callable invocations by callable name and HTTP status.",
		}, []string{"callable", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "plan_sharing",
			Name:      "callable_request_duration_seconds",
			Help:      "Callable latency by callable name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"callable"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// instrument logs and records every call to the named callable. m may be nil.
func instrument(name string, m *Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		if m != nil {
			m.requests.WithLabelValues(name, strconv.Itoa(status)).Inc()
			m.duration.WithLabelValues(name).Observe(elapsed.Seconds())
		}

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		} else if status >= http.StatusBadRequest {
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "callable",
			"callable", name,
			"caller", callerFromContext(r.Context()),
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
