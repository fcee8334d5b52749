package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/threat-comb/app/feed"
)

type ReloadConfigsTask struct {
	Task
	configCache *feed.ConfigCache
}

func NewReloadConfigsTask(configCache *feed.ConfigCache) *ReloadConfigsTask {
	return &ReloadConfigsTask{
		Task:        NewTask(TaskTypeReloadConfigs),
		configCache: configCache,
	}
}

func (t *ReloadConfigsTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.configCache.Run(); err != nil {
		return fmt.Errorf("failed to reload feed configs: %w", err)
	}

	slog.Debug("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"feeds", t.configCache.GetConfigCount())

	return nil
}
