package metrics

import "github.com/prometheus/client_golang/prometheus"

// TrackingMetrics exposes counters/histograms for the tracking fan-out.
type TrackingMetrics struct {
	leadsTotal      *prometheus.CounterVec
	dispatchTotal   *prometheus.CounterVec
	dispatchLatency *prometheus.HistogramVec
}

func NewTrackingMetrics(reg prometheus.Registerer) *TrackingMetrics {
	m := &TrackingMetrics{
		leadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rufoof",
			Subsystem: "tracking",
			Name:      "events_total",
			Help:      "Total tracking events accepted for fan-out",
		}, []string{"event_name", "action_source"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rufoof",
			Subsystem: "tracking",
			Name:      "dispatch_total",
			Help:      "Total per-platform dispatch outcomes",
		}, []string{"platform", "status"}),
		dispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rufoof",
			Subsystem: "tracking",
			Name:      "dispatch_latency_seconds",
			Help:      "Latency of per-platform conversion API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"platform"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.leadsTotal, m.dispatchTotal, m.dispatchLatency)
	return m
}

func (m *TrackingMetrics) ObserveEvent(eventName, actionSource string) {
	if m == nil {
		return
	}
	m.leadsTotal.WithLabelValues(eventName, actionSource).Inc()
}

func (m *TrackingMetrics) ObserveDispatch(platform string, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.dispatchTotal.WithLabelValues(platform, status).Inc()
}

func (m *TrackingMetrics) ObserveDispatchLatency(platform string, seconds float64) {
	if m == nil {
		return
	}
	m.dispatchLatency.WithLabelValues(platform).Observe(seconds)
}
