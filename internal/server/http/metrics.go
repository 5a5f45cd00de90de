package http

import (
	"github.com/dmitrijs2005/apotek/internal/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics backs router.Recorder with Prometheus counters on a private
// registry, so several servers can live in one process (tests).
type Metrics struct {
	registry      *prometheus.Registry
	decisions     *prometheus.CounterVec
	sessionErrors prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apotek",
			Subsystem: "guard",
			Name:      "decisions_total",
			Help:      "Navigation guard decisions by outcome.",
		}, []string{"outcome"}),
		sessionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "apotek",
			Subsystem: "guard",
			Name:      "session_errors_total",
			Help:      "Session queries that failed and were treated as signed out.",
		}),
	}
	m.registry.MustRegister(
		m.decisions,
		m.sessionErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Decision(o router.Outcome) {
	m.decisions.WithLabelValues(o.String()).Inc()
}

func (m *Metrics) SessionError() {
	m.sessionErrors.Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
