package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/threat-comb/app/feed"
	"github.com/lysyi3m/threat-comb/app/metrics"
)

var errAllFeedsFailed = errors.New("all feeds failed")

type RunFeedsTask struct {
	Task
	configCache *feed.ConfigCache
	runner      *feed.Runner
	store       *ResultStore
	runLock     *sync.Mutex
}

func NewRunFeedsTask(configCache *feed.ConfigCache, runner *feed.Runner, store *ResultStore, runLock *sync.Mutex) *RunFeedsTask {
	return &RunFeedsTask{
		Task:        NewTask(TaskTypeRunFeeds),
		configCache: configCache,
		runner:      runner,
		store:       store,
		runLock:     runLock,
	}
}

func (t *RunFeedsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Runs never overlap; a tick that lands on an in-flight run is dropped.
	if !t.runLock.TryLock() {
		slog.Debug("Run already in progress, skipping", "id", t.ID)
		return nil
	}
	defer t.runLock.Unlock()

	feedConfigs := t.configCache.GetEnabledConfigs()
	if len(feedConfigs) == 0 {
		slog.Debug("No enabled feed configurations found")
		return nil
	}

	start := time.Now()
	result := t.runner.Run(ctx, feedConfigs)
	duration := time.Since(start)

	t.store.Set(result, time.Now().UTC())
	metrics.RecordResult(result, duration)

	errorCount := 0
	for _, status := range result.Statuses {
		if status.Status == feed.StateError {
			errorCount++
			slog.Warn("Feed failed", "feed", status.FeedID, "error", status.Error)
			continue
		}
		slog.Debug("Feed processed", "feed", status.FeedID, "last_update", status.LastUpdate)
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"feeds", len(result.Statuses),
		"errors", errorCount,
		"items", len(result.Items))

	if errorCount == len(result.Statuses) {
		return fmt.Errorf("%w: %d feeds", errAllFeedsFailed, errorCount)
	}

	return nil
}
