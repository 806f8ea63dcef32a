package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the monitoring pipeline.
type Metrics struct {
	ReadingsGenerated *prometheus.CounterVec // label: scenario
	CurrentRisk       prometheus.Gauge
	AlertsSent        prometheus.Counter
	AlertsFailed      prometheus.Counter
	ListenersDropped  prometheus.Counter
	TickDuration      prometheus.Histogram
	TickErrors        prometheus.Counter
	LoopRunning       prometheus.Gauge
}

// NewMetrics creates and registers the pipeline metrics with the default
// registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ReadingsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floodwatch",
			Name:      "readings_generated_total",
			Help:      "Sensor readings generated, by scenario.",
		}, []string{"scenario"}),
		CurrentRisk: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "floodwatch",
			Name:      "current_flood_probability",
			Help:      "Flood probability of the most recent reading.",
		}),
		AlertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodwatch",
			Name:      "alerts_sent_total",
			Help:      "SMS alerts accepted for delivery.",
		}),
		AlertsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodwatch",
			Name:      "alerts_failed_total",
			Help:      "SMS alert attempts that failed.",
		}),
		ListenersDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodwatch",
			Name:      "listeners_dropped_total",
			Help:      "Live-update listeners dropped after a failed send.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "floodwatch",
			Name:      "tick_duration_seconds",
			Help:      "Duration of one generate-classify-broadcast-notify tick.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		}),
		TickErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodwatch",
			Name:      "tick_errors_total",
			Help:      "Generation ticks that failed and were skipped.",
		}),
		LoopRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "floodwatch",
			Name:      "loop_running",
			Help:      "1 while the generation loop is active.",
		}),
	}

	prometheus.MustRegister(
		m.ReadingsGenerated,
		m.CurrentRisk,
		m.AlertsSent,
		m.AlertsFailed,
		m.ListenersDropped,
		m.TickDuration,
		m.TickErrors,
		m.LoopRunning,
	)
	return m
}
