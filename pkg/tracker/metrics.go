package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	cycles       prometheus.Counter
	cycleErrors  prometheus.Counter
	skippedTicks prometheus.Counter
	outcomes     *prometheus.CounterVec
	duration     prometheus.Histogram
	pending      prometheus.Gauge
}

// NewMetrics creates the tracker metrics and registers them in reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigtrack_cycles_total",
			Help: "Resolution cycles run",
		}),
		cycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigtrack_cycle_errors_total",
			Help: "Resolution cycles aborted because pending signals couldn't be listed",
		}),
		skippedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sigtrack_skipped_ticks_total",
			Help: "Scheduler ticks skipped because a cycle was still running",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigtrack_signal_outcomes_total",
			Help: "Per signal evaluation outcomes",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigtrack_cycle_duration_seconds",
			Help:    "Resolution cycle duration",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sigtrack_pending_signals",
			Help: "Pending signals seen by the last cycle",
		}),
	}
	reg.MustRegister(m.cycles, m.cycleErrors, m.skippedTicks, m.outcomes, m.duration, m.pending)
	return m
}
