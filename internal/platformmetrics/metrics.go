// Package platformmetrics implements Prometheus instrumentation for the
// collection loop, following firestige-Otus/internal/metrics/metrics.go's
// promauto-registered package-level vector pattern.
package platformmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksProcessedTotal counts ProcessAllTasks outcomes by platform and
	// outcome (done, aborted, fatal).
	TasksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_collector_tasks_processed_total",
			Help: "Total number of collection tasks processed, by platform and outcome",
		},
		[]string{"platform", "outcome"},
	)

	// PostsCollectedTotal counts posts newly inserted by InsertPosts.
	PostsCollectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_collector_posts_collected_total",
			Help: "Total number of posts inserted into a platform store",
		},
		[]string{"platform"},
	)

	// QuotaHaltsTotal counts how many times a platform entered a quota halt.
	QuotaHaltsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_collector_quota_halts_total",
			Help: "Total number of quota halts recorded per platform",
		},
		[]string{"platform"},
	)

	// CollectionDurationSeconds measures one task's adapter execution time.
	CollectionDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "social_collector_collection_duration_seconds",
			Help:    "Duration of a single task's collection call",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform"},
	)

	// PlatformRunState reports whether a platform's loop is idle(0) or
	// running(1), mirroring manager.RunState.
	PlatformRunState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "social_collector_platform_run_state",
			Help: "Current run state of a platform's task loop (0=idle, 1=running)",
		},
		[]string{"platform"},
	)
)

const (
	RunStateIdle    = 0
	RunStateRunning = 1
)

// OutcomeLabel maps a TaskOutcome's success/failure shape to a metric
// label value.
func OutcomeLabel(err error) string {
	if err == nil {
		return "done"
	}
	return "aborted"
}
