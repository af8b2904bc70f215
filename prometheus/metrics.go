package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// LoginCounter counts login attempts
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_login_total",
			Help: "Total number of login attempts",
		},
	)

	// RegisterCounter counts signups
	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_register_total",
			Help: "Total number of user registrations",
		},
	)

	// RefreshCounter counts refresh-token rotations
	RefreshCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clinic_token_refresh_total",
			Help: "Total number of refresh token rotations",
		},
	)

	// AuthErrorCounter counts authentication failures by type
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // "missing_token", "invalid_token", "invalid_password", ...
	)

	// ScopeDeniedCounter counts requests rejected by the scope resolver
	ScopeDeniedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_scope_denied_total",
			Help: "Total number of requests denied by tenant scoping",
		},
		[]string{"role"},
	)

	// AutoLinkCounter counts patient record auto-link outcomes
	AutoLinkCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_patient_autolink_total",
			Help: "Total number of patient record auto-link attempts by outcome",
		},
		[]string{"outcome"}, // "linked" or "pending"
	)

	// HTTPRequestCounter counts requests by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clinic_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)
)

// Histogram metrics
var (
	// RequestDuration records request duration in seconds
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clinic_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// DBOperationDuration records database operation duration in seconds
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clinic_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "query", "insert", "update", "delete"
	)
)

// InitMetrics registers all metrics with the default registry
func InitMetrics() {
	prometheus.MustRegister(
		LoginCounter,
		RegisterCounter,
		RefreshCounter,
		AuthErrorCounter,
		ScopeDeniedCounter,
		AutoLinkCounter,
		HTTPRequestCounter,
		RequestDuration,
		DBOperationDuration,
	)
}

// RecordAuthError increments the auth error counter for the given type
func RecordAuthError(errorType string) {
	AuthErrorCounter.WithLabelValues(errorType).Inc()
}

// RecordScopeDenied increments the scope denial counter for a role
func RecordScopeDenied(role string) {
	ScopeDeniedCounter.WithLabelValues(role).Inc()
}

// RecordAutoLink increments the auto-link outcome counter
func RecordAutoLink(linked bool) {
	outcome := "pending"
	if linked {
		outcome = "linked"
	}
	AutoLinkCounter.WithLabelValues(outcome).Inc()
}

// TrackDBOperation returns a function that records the duration of a
// database operation when called. Use with defer:
//
//	defer prometheus.TrackDBOperation("query")(time.Now())
func TrackDBOperation(operation string) func(time.Time) {
	return func(start time.Time) {
		DBOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// MetricsMiddleware creates an Echo middleware that records HTTP request metrics
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			method := c.Request().Method
			endpoint := c.Path()
			statusStr := strconv.Itoa(status)

			HTTPRequestCounter.WithLabelValues(endpoint, method, statusStr).Inc()
			RequestDuration.WithLabelValues(endpoint, method, statusStr).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// GetPrometheusHandler returns an HTTP handler for exposing Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}
