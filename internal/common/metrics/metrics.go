// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	PipelineRunsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_failed_total",
			Help: "Total number of failed pipeline runs",
		},
		[]string{"stage", "error_code"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_stage_duration_seconds",
			Help: "Duration of each pipeline stage in seconds",
		},
		[]string{"stage"},
	)

	FieldsEmitted = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_fields_emitted",
			Help:    "Number of resolved fields emitted per run",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
		[]string{"document"},
	)

	DiagnosticsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_diagnostics_total",
			Help: "Non-fatal diagnostics recorded during runs",
		},
		[]string{"code"},
	)
)
