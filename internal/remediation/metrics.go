package remediation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	repairs             *prometheus.CounterVec
	consecutiveFailures prometheus.Gauge
	totalAttempts       prometheus.Gauge
	state               *prometheus.GaugeVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		repairs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "console_repairs_total",
			Help: "The total number of repair tier executions by outcome",
		}, []string{"tier", "result"}),
		consecutiveFailures: factory.NewGauge(prometheus.GaugeOpts{
			Name: "console_repair_consecutive_failures",
			Help: "Successive cycles that still failed after repair",
		}),
		totalAttempts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "console_repair_total_attempts",
			Help: "Repair attempts counted towards the exhaustion limit",
		}),
		state: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "console_repair_state",
			Help: "Current escalator state (1 for the active state)",
		}, []string{"state"}),
	}
}

func (m *metrics) observe(s RepairSession) {
	m.consecutiveFailures.Set(float64(s.ConsecutiveFailures))
	m.totalAttempts.Set(float64(s.TotalAttempts))
	for st := StateHealthy; st <= StateExhausted; st++ {
		v := 0.0
		if st == s.State {
			v = 1
		}
		m.state.WithLabelValues(st.String()).Set(v)
	}
}
