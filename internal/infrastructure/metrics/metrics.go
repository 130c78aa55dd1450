package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Inventory-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldstock",
			Subsystem: "inventory_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fieldstock",
			Subsystem: "inventory_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// Session gate outcomes
	AuthOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldstock",
			Subsystem: "inventory_api",
			Name:      "auth_outcomes_total",
			Help:      "Session middleware outcomes",
		},
		[]string{"outcome"},
	)

	// Token refresh exchanges
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldstock",
			Subsystem: "inventory_api",
			Name:      "token_refreshes_total",
			Help:      "Refresh token exchanges against the identity provider",
		},
		[]string{"status"},
	)

	// Permission checks
	PermissionChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fieldstock",
			Subsystem: "inventory_api",
			Name:      "permission_checks_total",
			Help:      "Scope permission evaluations",
		},
		[]string{"permission", "decision"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordAuthOutcome records a session gate result
func RecordAuthOutcome(outcome string) {
	AuthOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordTokenRefresh records a refresh exchange result
func RecordTokenRefresh(status string) {
	TokenRefreshesTotal.WithLabelValues(status).Inc()
}

// RecordPermissionCheck records a permission evaluation
func RecordPermissionCheck(permission, decision string) {
	PermissionChecksTotal.WithLabelValues(permission, decision).Inc()
}
