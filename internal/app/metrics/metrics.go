package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "simplifique",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simplifique",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "simplifique",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	checkouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simplifique",
			Subsystem: "cart",
			Name:      "checkouts_total",
			Help:      "Total number of cart checkouts.",
		},
		[]string{"result"},
	)

	redemptionPoints = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "simplifique",
			Subsystem: "orders",
			Name:      "redeemed_points_total",
			Help:      "Points debited by checkouts, before settlement.",
		},
	)

	catalogFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "simplifique",
			Subsystem: "catalog",
			Name:      "flat_fallbacks_total",
			Help:      "Times the catalog source fell back to the flat endpoint.",
		},
	)

	settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simplifique",
			Subsystem: "orders",
			Name:      "settlements_total",
			Help:      "Movements settled by the poller.",
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		checkouts,
		redemptionPoints,
		catalogFallbacks,
		settlements,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordCheckout records one checkout attempt and, when it succeeded, the
// points it debited.
func RecordCheckout(result string, points int) {
	checkouts.WithLabelValues(result).Inc()
	if points > 0 {
		redemptionPoints.Add(float64(points))
	}
}

// RecordCatalogFallback counts a grouped-endpoint failure that was served
// from the flat endpoint instead.
func RecordCatalogFallback() {
	catalogFallbacks.Inc()
}

// RecordSettlement counts one movement settled by the poller.
func RecordSettlement(status string) {
	settlements.WithLabelValues(status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses ids out of paths so the label set stays bounded.
func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/api"
	}
	if len(parts) == 2 {
		return "/api/" + parts[1]
	}
	// /api/brindes/{id}/estoque and friends keep resource and action, not id.
	if len(parts) >= 4 {
		return "/api/" + parts[1] + "/:id/" + parts[3]
	}
	return "/api/" + parts[1] + "/:id"
}
