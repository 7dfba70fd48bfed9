package media

import "github.com/prometheus/client_golang/prometheus"

// Outcomes recorded by the pipeline.
const (
	OutcomeOptimized = "optimized"
	OutcomeUnchanged = "unchanged"
	OutcomeFallback  = "fallback"
	OutcomeRejected  = "rejected"
)

// Metrics counts pipeline outcomes and bytes saved.
type Metrics struct {
	processed  *prometheus.CounterVec
	bytesSaved prometheus.Counter
}

// NewMetrics registers the media collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mercato_media_processed_total",
			Help: "Images processed by outcome.",
		}, []string{"outcome"}),
		bytesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mercato_media_bytes_saved_total",
			Help: "Bytes removed by compression.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.processed, m.bytesSaved)
	}
	return m
}

func (m *Metrics) observe(outcome string, saved int64) {
	if m == nil {
		return
	}
	m.processed.WithLabelValues(outcome).Inc()
	if saved > 0 {
		m.bytesSaved.Add(float64(saved))
	}
}
