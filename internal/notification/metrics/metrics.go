package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for notification fan-out and reads.
type Metrics struct {
	Persisted        prometheus.Counter
	Failed           *prometheus.CounterVec
	DispatchDuration prometheus.Histogram
	UnreadCache      *prometheus.CounterVec
}

// New registers the notification metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Persisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "siwarga_notifications_persisted_total",
			Help: "Notification rows written by fan-out",
		}),
		Failed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "siwarga_notifications_failed_total",
			Help: "Fan-out failures by stage (resolve, persist)",
		}, []string{"stage"}),
		DispatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "siwarga_notification_dispatch_duration_seconds",
			Help:    "Duration of one Dispatch call",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		UnreadCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "siwarga_notification_unread_cache_total",
			Help: "Unread count cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
	}
}

func (m *Metrics) AddPersisted(n int) {
	if m == nil {
		return
	}
	m.Persisted.Add(float64(n))
}

func (m *Metrics) IncrementFailed(stage string) {
	if m == nil {
		return
	}
	m.Failed.WithLabelValues(stage).Inc()
}

// ObserveDispatch records the duration of a Dispatch call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveDispatch(start time.Time) {
	if m == nil {
		return
	}
	m.DispatchDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementUnreadCache(result string) {
	if m == nil {
		return
	}
	m.UnreadCache.WithLabelValues(result).Inc()
}
