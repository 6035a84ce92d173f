package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveTransition(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())
	m.ObserveTransition("document", "approve", "ok", time.Now())
	m.ObserveTransition("document", "approve", "invalid_transition", time.Now())
	m.AddEvents("document", 3)
	m.AddEvents("document", 0)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Transitions.WithLabelValues("document", "approve", "ok")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.EventsEmitted.WithLabelValues("document")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.TransitionDuration))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveTransition("document", "approve", "ok", time.Now())
	m.AddEvents("document", 1)
}
