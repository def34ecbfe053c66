package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	stageDuration   *prometheus.HistogramVec
	runs            *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	transcriptReuse prometheus.Counter
	inFlight        prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when reg is
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sematube",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
			Buckets:   []float64{0.05, 0.25, 1, 5, 15, 60, 300, 900, 3600},
		}, []string{"stage", "outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sematube",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by task and outcome.",
		}, []string{"task", "outcome"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sematube",
			Subsystem: "pipeline",
			Name:      "cache_hits_total",
			Help:      "Requests served from a completed or in-flight run.",
		}, []string{"task"}),
		transcriptReuse: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sematube",
			Subsystem: "pipeline",
			Name:      "transcript_reuse_total",
			Help:      "Runs that reused a memoized transcript.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sematube",
			Subsystem: "pipeline",
			Name:      "runs_in_flight",
			Help:      "Pipeline runs currently executing.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.stageDuration, m.runs, m.cacheHits, m.transcriptReuse, m.inFlight)
	}
	return m
}

func (m *Metrics) observeStage(stage Stage, outcome string, elapsed time.Duration) {
	m.stageDuration.WithLabelValues(string(stage), outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) runFinished(task Task, outcome string) {
	m.runs.WithLabelValues(string(task), outcome).Inc()
}

func (m *Metrics) cacheHit(task Task) {
	m.cacheHits.WithLabelValues(string(task)).Inc()
}
