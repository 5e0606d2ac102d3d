// File: internal/observability/metrics.go
package observability

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Metrics is the harness collector set. Each instance owns its registry so
// tests and concurrent harnesses never collide on registration.
type Metrics struct {
	Registry *prometheus.Registry

	sessionsCreated *prometheus.CounterVec
	sessionsActive  prometheus.Gauge
	fallbacks       *prometheus.CounterVec
	waitTimeouts    *prometheus.CounterVec
	retries         prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		sessionsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uiharness",
			Name:      "sessions_created_total",
			Help:      "Browser sessions created, by browser kind.",
		}, []string{"kind"}),
		sessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "uiharness",
			Name:      "sessions_active",
			Help:      "Browser sessions currently registered.",
		}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uiharness",
			Name:      "interaction_fallbacks_total",
			Help:      "Scripted fallbacks attempted after a native action failed.",
		}, []string{"op", "outcome"}),
		waitTimeouts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uiharness",
			Name:      "wait_timeouts_total",
			Help:      "Waits that ran out of time, by condition kind.",
		}, []string{"condition"}),
		retries: f.NewCounter(prometheus.CounterOpts{
			Namespace: "uiharness",
			Name:      "scenario_retries_total",
			Help:      "Whole-scenario retries granted by the retry policy.",
		}),
	}
}

func (m *Metrics) SessionCreated(kind string) {
	m.sessionsCreated.WithLabelValues(kind).Inc()
	m.sessionsActive.Inc()
}

func (m *Metrics) SessionClosed() { m.sessionsActive.Dec() }

func (m *Metrics) FallbackUsed(op, outcome string) {
	m.fallbacks.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) WaitTimedOut(condition string) {
	m.waitTimeouts.WithLabelValues(condition).Inc()
}

func (m *Metrics) ScenarioRetried() { m.retries.Inc() }

// WriteText gathers the registry and writes it in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.Registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encoding %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
