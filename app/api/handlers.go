package api

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/threat-comb/app/feed"
	"github.com/lysyi3m/threat-comb/app/tasks"
)

const (
	defaultItemsLimit = 100
	maxItemsLimit     = 1000
)

func NewHandler(configCache *feed.ConfigCache, store *tasks.ResultStore, scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		configCache: configCache,
		store:       store,
		scheduler:   scheduler,
		version:     version,
	}
}

// GetHealth reports the per-feed statuses of the last run. The status is
// "degraded" when any feed failed and "pending" before the first run.
func (h *Handler) GetHealth(c *gin.Context) {
	result, completedAt, ok := h.store.Latest()

	health := HealthResponse{
		Status:               "ok",
		Timestamp:            time.Now().In(time.Local).Format(time.RFC3339),
		Version:              h.version,
		LoadedConfigurations: h.configCache.GetConfigCount(),
		Feeds:                []feed.FeedStatus{},
	}

	if !ok {
		health.Status = "pending"
		c.JSON(http.StatusOK, health)
		return
	}

	health.LastRun = &completedAt
	health.Feeds = result.Statuses
	for _, status := range result.Statuses {
		if status.Status == feed.StateError {
			health.Status = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	result, completedAt, ok := h.store.Latest()

	stats := StatsResponse{
		Runs:         h.store.RunCount(),
		BySeverity:   make(map[string]int),
		ByThreatType: make(map[string]int),
		ByFeed:       make(map[string]int),
	}
	if ok {
		stats.LastRun = &completedAt
	}

	stats.TotalItems = len(result.Items)
	for _, item := range result.Items {
		stats.BySeverity[string(item.Severity)]++
		stats.ByThreatType[item.ThreatType]++
		stats.ByFeed[item.FeedID]++
	}
	for _, status := range result.Statuses {
		if status.Status == feed.StateActive {
			stats.ActiveFeeds++
		} else {
			stats.ErrorFeeds++
		}
	}

	c.JSON(http.StatusOK, stats)
}

// APIListItems returns items of the last run. Optional query filters:
// feed, severity, threat_type and limit.
func (h *Handler) APIListItems(c *gin.Context) {
	limit := defaultItemsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = min(n, maxItemsLimit)
	}

	severity := feed.Severity(strings.ToLower(c.Query("severity")))
	if severity != "" && !severity.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid severity parameter"})
		return
	}
	feedID := c.Query("feed")
	threatType := strings.ToLower(c.Query("threat_type"))

	result, _, _ := h.store.Latest()

	items := make([]feed.ThreatItem, 0, min(limit, len(result.Items)))
	matched := 0
	for _, item := range result.Items {
		if feedID != "" && item.FeedID != feedID {
			continue
		}
		if severity != "" && item.Severity != severity {
			continue
		}
		if threatType != "" && item.ThreatType != threatType {
			continue
		}
		matched++
		if len(items) < limit {
			items = append(items, item)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": matched,
	})
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	configs := h.configCache.GetConfigs()
	result, _, _ := h.store.Latest()

	statuses := make(map[string]feed.FeedStatus, len(result.Statuses))
	for _, status := range result.Statuses {
		statuses[status.FeedID] = status
	}

	feeds := make([]FeedInfo, 0, len(configs))
	for _, feedConfig := range configs {
		info := FeedInfo{
			FeedID:          feedConfig.FeedID,
			URL:             feedConfig.URL,
			Enabled:         feedConfig.Settings.Enabled,
			DefaultSeverity: feedConfig.DefaultSeverity,
			Timeout:         feedConfig.GetTimeout().String(),
			ExtractContent:  feedConfig.Settings.ExtractContent,
		}
		if status, ok := statuses[feedConfig.FeedID]; ok {
			info.Status = &status
		}
		feeds = append(feeds, info)
	}
	slices.SortFunc(feeds, func(a, b FeedInfo) int {
		return strings.Compare(a.FeedID, b.FeedID)
	})

	c.JSON(http.StatusOK, gin.H{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) APIRun(c *gin.Context) {
	task, err := h.scheduler.EnqueueRun()
	if err != nil {
		slog.Error("Error enqueueing run task", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue run task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Run enqueued",
		"task": gin.H{
			"id":   task.GetID(),
			"type": task.GetType(),
		},
	})
}
