package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the session collectors. A nil registerer yields working but
// unregistered collectors.
type Metrics struct {
	connects *prometheus.CounterVec
	attempts *prometheus.HistogramVec
	status   *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		connects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_session_connects_total",
			Help: "The total number of connect outcomes per service",
		}, []string{"service", "result"}),
		attempts: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_session_connect_attempts",
			Help:    "Authentication attempts made per credential strategy",
			Buckets: []float64{1, 2, 3, 5, 7, 10},
		}, []string{"service", "credential"}),
		status: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "console_session_status",
			Help: "Current connection status per service (1 for the active status)",
		}, []string{"service", "status"}),
	}
}

func (m *Metrics) observeAttempts(serviceID, kind string, attempts int) {
	m.attempts.WithLabelValues(serviceID, kind).Observe(float64(attempts))
}

func (m *Metrics) setStatus(serviceID string, current Status) {
	for s := StatusDisconnected; s <= StatusFailed; s++ {
		v := 0.0
		if s == current {
			v = 1
		}
		m.status.WithLabelValues(serviceID, s.String()).Set(v)
	}
}
