// Package metrics declares the Prometheus collectors of the qualification
// core. They register on the default registry and are served by promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qualification_status_transitions_total",
			Help: "Total number of persisted lead offer status transitions",
		},
		[]string{"from", "to"},
	)

	FunnelStageEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qualification_funnel_stage_entries_total",
			Help: "Total number of lead offers entering each funnel stage",
		},
		[]string{"stage"},
	)

	CollaboratorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qualification_collaborator_failures_total",
			Help: "Total number of absorbed collaborator failures",
		},
		[]string{"collaborator"},
	)

	CollaboratorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qualification_collaborator_duration_seconds",
			Help:    "Duration of collaborator calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collaborator"},
	)

	ScoresComputed = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qualification_score",
			Help:    "Distribution of computed lead scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"template_source"},
	)

	VersionConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qualification_version_conflicts_total",
			Help: "Total number of optimistic concurrency losses",
		},
	)

	TemplateResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qualification_template_resolutions_total",
			Help: "Total number of scoring template resolutions by source",
		},
		[]string{"source"},
	)

	TasksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_tasks_processed_total",
			Help: "Total number of scheduler tasks processed",
		},
		[]string{"task_type", "outcome"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
