package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what the orchestrator does beyond forwarding.
type Metrics struct {
	sideEffects        *prometheus.CounterVec
	sideEffectDuration *prometheus.HistogramVec
	backendCalls       *prometheus.CounterVec
}

// NewMetrics registers the orchestrator collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		sideEffects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_side_effects_total",
				Help: "Side-channel actions attempted, by route, kind and result.",
			},
			[]string{"route", "kind", "result"},
		),
		sideEffectDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_side_effect_duration_seconds",
				Help:    "Duration of side-channel actions.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		backendCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_backend_calls_total",
				Help: "Intercepted backend calls, by route and outcome.",
			},
			[]string{"route", "outcome"},
		),
	}

	for _, c := range []prometheus.Collector{m.sideEffects, m.sideEffectDuration, m.backendCalls} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeSideEffect(route string, r SideEffectResult) {
	if m == nil {
		return
	}
	result := "success"
	if !r.Success {
		result = "failure"
	}
	m.sideEffects.WithLabelValues(route, r.Kind, result).Inc()
	m.sideEffectDuration.WithLabelValues(r.Kind).Observe(r.Duration.Seconds())
}

func (m *Metrics) observeBackend(route, outcome string) {
	if m == nil {
		return
	}
	m.backendCalls.WithLabelValues(route, outcome).Inc()
}
