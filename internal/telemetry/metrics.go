package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors exposed over
// internal/httpdebug's /metrics route. All collectors are registered
// against the default registry via promauto, matching the ecosystem's
// usual exposition pattern.
var Metrics = newMetrics()

type metrics struct {
	jobTransitions   *prometheus.CounterVec
	eventTransitions *prometheus.CounterVec
	sweepDuration    prometheus.Histogram
	connectionUp     prometheus.Gauge
	deadLetterDepth  prometheus.Gauge
}

func newMetrics() *metrics {
	return &metrics{
		jobTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "obsctl",
			Name:      "job_transitions_total",
			Help:      "Number of job capture_status transitions, by resulting status.",
		}, []string{"status"}),
		eventTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "obsctl",
			Name:      "event_transitions_total",
			Help:      "Number of event state transitions, by event kind and resulting status.",
		}, []string{"kind", "status"}),
		sweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "obsctl",
			Name:      "scheduler_sweep_duration_seconds",
			Help:      "Wall-clock duration of one scheduler sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
		connectionUp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "obsctl",
			Name:      "connection_up",
			Help:      "1 if the device connection is alive, 0 otherwise.",
		}),
		deadLetterDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "obsctl",
			Name:      "dead_letter_pending",
			Help:      "Number of unacked dead-lettered frame uploads.",
		}),
	}
}

func (m *metrics) ObserveJobTransition(status string) {
	m.jobTransitions.WithLabelValues(status).Inc()
}

func (m *metrics) ObserveEventTransition(kind, status string) {
	m.eventTransitions.WithLabelValues(kind, status).Inc()
}

func (m *metrics) ObserveSweepDuration(d time.Duration) {
	m.sweepDuration.Observe(d.Seconds())
}

func (m *metrics) SetConnectionUp(up bool) {
	if up {
		m.connectionUp.Set(1)
	} else {
		m.connectionUp.Set(0)
	}
}

func (m *metrics) SetDeadLetterDepth(n int) {
	m.deadLetterDepth.Set(float64(n))
}
