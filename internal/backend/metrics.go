package backend

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes which backend serves each aggregate and how often resolution fell through.
type Metrics struct {
	active    *prometheus.GaugeVec
	fallbacks *prometheus.CounterVec
}

// NewMetrics builds the resolver collectors and registers them on reg.
// A nil registerer falls back to prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "invoicing",
			Name:      "backend_active",
			Help:      "Backend selected for each aggregate (1 = active).",
		}, []string{"aggregate", "backend"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "invoicing",
			Name:      "backend_fallbacks_total",
			Help:      "Backend attempts that failed during resolution.",
		}, []string{"aggregate", "backend"}),
	}

	for _, c := range []prometheus.Collector{m.active, m.fallbacks} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) selected(aggregate, backend string) {
	if m == nil {
		return
	}
	m.active.WithLabelValues(aggregate, backend).Set(1)
}

func (m *Metrics) failed(aggregate, backend string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(aggregate, backend).Inc()
}
