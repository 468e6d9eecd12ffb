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
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catsim_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catsim_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	modelEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catsim_model_evaluations_total",
			Help: "Total number of variability model invocations.",
		},
		[]string{"model"},
	)

	modelObjectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catsim_model_objects_total",
			Help: "Total number of objects passed through each variability model.",
		},
		[]string{"model"},
	)

	modelErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catsim_model_errors_total",
			Help: "Total number of failed variability model invocations.",
		},
		[]string{"model"},
	)

	modelDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catsim_model_duration_seconds",
			Help:    "Duration of one variability model invocation in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"model"},
	)

	agnCacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "catsim_agn_cache_entries",
		Help: "Number of resumable AGN processes held in the cache.",
	})

	agnCacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catsim_agn_cache_lookups_total",
			Help: "AGN process cache lookups by result.",
		},
		[]string{"result"},
	)

	agnCacheResetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catsim_agn_cache_resets_total",
		Help: "Number of times the AGN process cache was cleared.",
	})

	lightCurveLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catsim_lightcurve_loads_total",
			Help: "Light curve files and archive arrays read from disk.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(modelEvaluationsTotal)
	prometheus.MustRegister(modelObjectsTotal)
	prometheus.MustRegister(modelErrorsTotal)
	prometheus.MustRegister(modelDurationSeconds)
	prometheus.MustRegister(agnCacheEntries)
	prometheus.MustRegister(agnCacheLookupsTotal)
	prometheus.MustRegister(agnCacheResetsTotal)
	prometheus.MustRegister(lightCurveLoadsTotal)
}

// RecordEvaluation records one model invocation over objects.
func RecordEvaluation(model string, objects int, duration time.Duration, err error) {
	modelEvaluationsTotal.WithLabelValues(model).Inc()
	modelObjectsTotal.WithLabelValues(model).Add(float64(objects))
	modelDurationSeconds.WithLabelValues(model).Observe(duration.Seconds())
	if err != nil {
		modelErrorsTotal.WithLabelValues(model).Inc()
	}
}

// SetAGNCacheEntries publishes the AGN cache size.
func SetAGNCacheEntries(n int) {
	agnCacheEntries.Set(float64(n))
}

// IncAGNCacheLookup counts a resumption (hit) or fresh start (miss).
func IncAGNCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	agnCacheLookupsTotal.WithLabelValues(result).Inc()
}

// IncAGNCacheResets counts a full clear of the AGN cache.
func IncAGNCacheResets() {
	agnCacheResetsTotal.Inc()
}

// IncLightCurveLoads counts a read of light curve data of the given kind
// ("table" or "archive").
func IncLightCurveLoads(kind string) {
	lightCurveLoadsTotal.WithLabelValues(kind).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// knownRoutes are served verbatim as path labels.
var knownRoutes = map[string]bool{
	"/":                   true,
	"/healthz":            true,
	"/readyz":             true,
	"/metrics":            true,
	"/api/v1/variability": true,
	"/api/v1/models":      true,
	"/api/v1/columns":     true,
	"/api/v1/agn/reset":   true,
	"/api/v1/cache/stats": true,
}

// normalizeRoute bounds the cardinality of the path label.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if trimmed := strings.TrimSuffix(path, "/"); trimmed != path && knownRoutes[trimmed] {
		return trimmed
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		path := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(duration)
	})
}
