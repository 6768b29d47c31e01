package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the service's prometheus collectors.
// A nil *Registry is valid and records nothing.
type Registry struct {
	registry        *prometheus.Registry
	depositsTotal   *prometheus.CounterVec
	depositDuration *prometheus.HistogramVec
	refreshTotal    *prometheus.CounterVec
	activeSessions  prometheus.Gauge
}

// New creates a registry with all collectors registered
func New() *Registry {
	deposits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultmint_deposits_total",
		Help: "Deposit workflows by variant and terminal state",
	}, []string{"variant", "state"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vaultmint_deposit_duration_seconds",
		Help:    "Time from submission request to terminal state",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
	}, []string{"variant"})

	refresh := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vaultmint_refresh_total",
		Help: "Rate and balance refreshes by result (applied, stale, error)",
	}, []string{"kind", "result"})

	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vaultmint_active_sessions",
		Help: "Number of open mint sessions",
	})

	r := prometheus.NewRegistry()
	r.MustRegister(deposits, duration, refresh, sessions)

	return &Registry{
		registry:        r,
		depositsTotal:   deposits,
		depositDuration: duration,
		refreshTotal:    refresh,
		activeSessions:  sessions,
	}
}

// Handler serves the registry in the prometheus exposition format
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDeposit records a finished deposit workflow
func (m *Registry) ObserveDeposit(variant, state string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.depositsTotal.WithLabelValues(variant, state).Inc()
	m.depositDuration.WithLabelValues(variant).Observe(elapsed.Seconds())
}

// IncRefresh counts one rate or balance refresh outcome
func (m *Registry) IncRefresh(kind, result string) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(kind, result).Inc()
}

// SetActiveSessions updates the open session gauge
func (m *Registry) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
