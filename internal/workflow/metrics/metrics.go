package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for workflow transitions.
type Metrics struct {
	Transitions        *prometheus.CounterVec
	TransitionDuration *prometheus.HistogramVec
	EventsEmitted      *prometheus.CounterVec
}

// New registers the workflow metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "siwarga_workflow_transitions_total",
			Help: "Workflow operations by entity kind, action and outcome",
		}, []string{"kind", "action", "outcome"}),
		TransitionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "siwarga_workflow_transition_duration_seconds",
			Help:    "Duration of workflow operations by entity kind",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"kind"}),
		EventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "siwarga_workflow_events_emitted_total",
			Help: "Notification events produced by workflow operations",
		}, []string{"kind"}),
	}
}

// ObserveTransition records one operation. outcome is "ok" or the error code.
func (m *Metrics) ObserveTransition(kind, action, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(kind, action, outcome).Inc()
	m.TransitionDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func (m *Metrics) AddEvents(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.EventsEmitted.WithLabelValues(kind).Add(float64(n))
}
