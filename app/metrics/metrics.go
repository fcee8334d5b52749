// Package metrics provides Prometheus metrics for threat-comb.
package metrics

import (
	"time"

	"github.com/lysyi3m/threat-comb/app/feed"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedRunsTotal counts per-feed outcomes.
	FeedRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threatcomb",
			Name:      "feed_runs_total",
			Help:      "Total number of feed runs by outcome",
		},
		[]string{"feed", "status"},
	)

	// ItemsTotal counts extracted items by severity.
	ItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threatcomb",
			Name:      "items_total",
			Help:      "Total number of extracted threat items",
		},
		[]string{"feed", "severity"},
	)

	// FeedUp is 1 when the last run of a feed succeeded.
	FeedUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "threatcomb",
			Name:      "feed_up",
			Help:      "Feed status from the last run (1 = active, 0 = error)",
		},
		[]string{"feed"},
	)

	// RunDuration measures a whole pipeline run.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "threatcomb",
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	// LastRunItems is the item count of the most recent run.
	LastRunItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "threatcomb",
			Name:      "last_run_items",
			Help:      "Number of items produced by the most recent run",
		},
	)

	// TaskFailuresTotal counts scheduler task failures by type.
	TaskFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threatcomb",
			Name:      "task_failures_total",
			Help:      "Total number of failed task executions",
		},
		[]string{"type"},
	)
)

// RecordResult records a finished pipeline run.
func RecordResult(result feed.Result, duration time.Duration) {
	for _, status := range result.Statuses {
		FeedRunsTotal.WithLabelValues(status.FeedID, string(status.Status)).Inc()
		if status.Status == feed.StateActive {
			FeedUp.WithLabelValues(status.FeedID).Set(1)
		} else {
			FeedUp.WithLabelValues(status.FeedID).Set(0)
		}
	}

	for _, item := range result.Items {
		ItemsTotal.WithLabelValues(item.FeedID, string(item.Severity)).Inc()
	}

	LastRunItems.Set(float64(len(result.Items)))
	RunDuration.Observe(duration.Seconds())
}

// RecordTaskFailure records a failed task execution.
func RecordTaskFailure(taskType string) {
	TaskFailuresTotal.WithLabelValues(taskType).Inc()
}
