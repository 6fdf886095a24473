package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exports forecasting pipeline activity to Prometheus.
type Recorder struct {
	runs          *prometheus.CounterVec
	stageFailures *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	degraded      *prometheus.CounterVec
	accuracy      *prometheus.GaugeVec
}

// New registers the collectors on reg, or on the default registerer when nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oracle_pipeline_runs_total",
				Help: "Pipeline runs by algorithm and outcome",
			},
			[]string{"algorithm", "outcome"},
		),
		stageFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oracle_stage_failures_total",
				Help: "Pipeline failures by stage",
			},
			[]string{"stage"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oracle_pipeline_duration_seconds",
				Help:    "Wall time of a pipeline run",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"algorithm"},
		),
		degraded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oracle_degraded_members_total",
				Help: "Optional ensemble members dropped because their backend is missing",
			},
			[]string{"algorithm", "member"},
		),
		accuracy: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "oracle_holdout_accuracy",
				Help: "Holdout accuracy of the latest run",
			},
			[]string{"ticker", "algorithm"},
		),
	}
}

func (r *Recorder) RecordRun(algorithm, outcome string, elapsed time.Duration) {
	r.runs.WithLabelValues(algorithm, outcome).Inc()
	r.duration.WithLabelValues(algorithm).Observe(elapsed.Seconds())
}

func (r *Recorder) RecordStageFailure(stage string) {
	r.stageFailures.WithLabelValues(stage).Inc()
}

func (r *Recorder) RecordDegraded(algorithm, member string) {
	r.degraded.WithLabelValues(algorithm, member).Inc()
}

func (r *Recorder) RecordAccuracy(ticker, algorithm string, accuracy float64) {
	r.accuracy.WithLabelValues(ticker, algorithm).Set(accuracy)
}
