package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the orchestrator
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// SSO flow metrics
	RequestsInitiated *prometheus.CounterVec
	CallbacksTotal    *prometheus.CounterVec
	FactorAttempts    *prometheus.CounterVec
	ReconcileTotal    *prometheus.CounterVec
	UsersCreated      prometheus.Counter

	// Exchange store metrics
	StoreOperations *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatekeeper_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		RequestsInitiated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_sso_requests_total",
				Help: "SSO handshakes initiated, by provider family and outcome",
			},
			[]string{"family", "outcome"},
		),
		CallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_sso_callbacks_total",
				Help: "SSO callbacks verified, by provider family and outcome",
			},
			[]string{"family", "outcome"},
		),
		FactorAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_sso_factor_attempts_total",
				Help: "Step-up factor redemptions, by factor and outcome",
			},
			[]string{"factor", "outcome"},
		),
		ReconcileTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_sso_reconcile_total",
				Help: "User reconciliations, by outcome",
			},
			[]string{"outcome"},
		),
		UsersCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatekeeper_sso_users_created_total",
				Help: "Users provisioned by single sign-on",
			},
		),
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_exchange_store_operations_total",
				Help: "Exchange store operations, by op and outcome",
			},
			[]string{"op", "outcome"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RequestsInitiated,
		m.CallbacksTotal,
		m.FactorAttempts,
		m.ReconcileTotal,
		m.UsersCreated,
		m.StoreOperations,
	)

	return m
}

// Handler returns the /metrics HTTP handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the response status for the HTTP middleware
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware instruments an HTTP handler with request count and duration
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.HTTPRequestsTotal.WithLabelValues(
			r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(
			r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
