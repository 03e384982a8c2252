package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is safe to use through a nil pointer; every recorder is a no-op then.
type Metrics struct {
	samples       *prometheus.CounterVec
	skipped       *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	storeErrors   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	discarded     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autotimer",
			Name:      "samples_total",
			Help:      "Location samples processed, by outcome",
		}, []string{"result"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autotimer",
			Name:      "geofence_skipped_total",
			Help:      "Geofence evaluations skipped for a sample",
		}, []string{"reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autotimer",
			Name:      "transitions_total",
			Help:      "Geofence transitions emitted",
		}, []string{"kind"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autotimer",
			Name:      "status_store_errors_total",
			Help:      "Geofence status store failures",
		}, []string{"op"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autotimer",
			Name:      "notifications_published_total",
			Help:      "Timer notifications published",
		}, []string{"type"}),
		discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "autotimer",
			Name:      "dispatch_discarded_total",
			Help:      "Transition events discarded because auto timer is disabled",
		}),
	}
	reg.MustRegister(m.samples, m.skipped, m.transitions, m.storeErrors, m.notifications, m.discarded)
	return m
}

func (m *Metrics) Sample(result string) {
	if m == nil {
		return
	}
	m.samples.WithLabelValues(result).Inc()
}

func (m *Metrics) Skipped(reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) Transition(kind string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind).Inc()
}

func (m *Metrics) StoreError(op string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) Notification(typ string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(typ).Inc()
}

func (m *Metrics) Discarded(n int) {
	if m == nil {
		return
	}
	m.discarded.Add(float64(n))
}
