// Package metrics provides Prometheus recording for workflow step executions
// and a query service for aggregating recorded data.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records per-step execution metrics.
type Recorder struct {
	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	eventsTotal  *prometheus.CounterVec
}

// NewRecorder creates a recorder registered on the default registry.
func NewRecorder() *Recorder {
	return NewRecorderWith(prometheus.DefaultRegisterer)
}

// NewRecorderWith creates a recorder registered on reg. Tests pass a fresh
// registry to avoid duplicate registration.
func NewRecorderWith(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		stepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistant_steps_total",
				Help: "Total number of executed workflow steps by agent, action, mode and status",
			},
			[]string{"agent", "action", "mode", "status"},
		),
		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assistant_step_duration_seconds",
				Help:    "Duration of workflow step executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"agent", "action", "mode"},
		),
		eventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistant_events_total",
				Help: "Total number of events published on the internal bus",
			},
			[]string{"type"},
		),
	}
}

// ObserveStep records one completed workflow step.
func (r *Recorder) ObserveStep(agent, action, mode string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	r.stepsTotal.WithLabelValues(agent, action, mode, status).Inc()
	r.stepDuration.WithLabelValues(agent, action, mode).Observe(duration.Seconds())
}

// IncEvent counts one published bus event.
func (r *Recorder) IncEvent(eventType string) {
	r.eventsTotal.WithLabelValues(eventType).Inc()
}
