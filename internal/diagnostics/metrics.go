package diagnostics

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the latest diagnostic outcome per check.
type Metrics struct {
	status   *prometheus.GaugeVec
	duration *prometheus.GaugeVec
}

// NewMetrics registers diagnostics collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	status := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mercato_diagnostics_check_status",
		Help: "Latest diagnostic status per check: 0 pass, 1 warn, 2 fail.",
	}, []string{"check"})
	duration := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mercato_diagnostics_check_duration_seconds",
		Help: "Duration of the latest diagnostic run per check.",
	}, []string{"check"})
	reg.MustRegister(status, duration)
	return &Metrics{status: status, duration: duration}
}

func (m *Metrics) observe(res Result) {
	if m == nil {
		return
	}
	m.status.WithLabelValues(res.Name).Set(float64(res.Status.rank()))
	m.duration.WithLabelValues(res.Name).Set(res.Duration.Seconds())
}
