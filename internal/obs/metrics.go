package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics shared by all handlers.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Session-core metrics. Labels stay low-cardinality: outcomes only,
// never user or token identifiers.
var (
	TokenPairsIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_token_pairs_issued_total",
		Help: "Access/refresh pairs minted.",
	})

	TokenRotations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_token_rotations_total",
		Help: "Successful refresh rotations.",
	})

	TokenRotationRejects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_token_rotation_rejects_total",
		Help: "Refresh attempts rejected (revoked, expired, reused or raced).",
	})

	TokenRevocations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_token_revocations_total",
		Help: "Explicit token-pair revocations (logout).",
	})

	BlacklistHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_blacklist_hits_total",
		Help: "Validations rejected by the revocation store.",
	})
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		TokenPairsIssued, TokenRotations, TokenRotationRejects,
		TokenRevocations, BlacklistHits,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CanonicalPath collapses per-resource path segments so metric labels
// stay low-cardinality: user ids become ":id", query strings drop.
func CanonicalPath(path string) string {
	if path == "" {
		return "/"
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if rest, ok := strings.CutPrefix(path, "/v1/users/"); ok && rest != "" {
		id, action, _ := strings.Cut(rest, "/")
		if id == "" {
			return path
		}
		if action == "" {
			return "/v1/users/:id"
		}
		switch action {
		case "activate", "deactivate", "verify", "password":
			return "/v1/users/:id/" + action
		}
	}
	return path
}

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
