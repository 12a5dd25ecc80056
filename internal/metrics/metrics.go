// Package metrics exposes Prometheus instrumentation for optimization
// runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for the optimization service.
type Metrics struct {
	RunsStarted   *prometheus.CounterVec
	RunsFinished  *prometheus.CounterVec
	Generations   prometheus.Counter
	BatchDuration prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "steppe",
			Name:      "runs_started_total",
			Help:      "Optimization runs started, by objective name.",
		}, []string{"objective"}),
		RunsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "steppe",
			Name:      "runs_finished_total",
			Help:      "Optimization runs finished, by terminal status.",
		}, []string{"status"}),
		Generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "steppe",
			Name:      "generations_total",
			Help:      "Completed DE generations across all runs.",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "steppe",
			Name:      "generation_duration_seconds",
			Help:      "Wall-clock duration of one generation including its evaluation batch.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}
	reg.MustRegister(m.RunsStarted, m.RunsFinished, m.Generations, m.BatchDuration)
	return m
}

// NewDefault registers the collectors with the default registerer.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}
