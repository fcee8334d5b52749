package api

import (
	"time"

	"github.com/lysyi3m/threat-comb/app/feed"
	"github.com/lysyi3m/threat-comb/app/tasks"
)

type Handler struct {
	configCache *feed.ConfigCache
	store       *tasks.ResultStore
	scheduler   tasks.TaskSchedulerInterface
	version     string
}

type HealthResponse struct {
	Status               string            `json:"status"`
	Timestamp            string            `json:"timestamp"`
	Version              string            `json:"version"`
	LoadedConfigurations int               `json:"loaded_configurations"`
	LastRun              *time.Time        `json:"last_run"`
	Feeds                []feed.FeedStatus `json:"feeds"`
}

type StatsResponse struct {
	Runs         int            `json:"runs"`
	LastRun      *time.Time     `json:"last_run"`
	TotalItems   int            `json:"total_items"`
	ActiveFeeds  int            `json:"active_feeds"`
	ErrorFeeds   int            `json:"error_feeds"`
	BySeverity   map[string]int `json:"by_severity"`
	ByThreatType map[string]int `json:"by_threat_type"`
	ByFeed       map[string]int `json:"by_feed"`
}

type FeedInfo struct {
	FeedID          string           `json:"feedId"`
	URL             string           `json:"url"`
	Enabled         bool             `json:"enabled"`
	DefaultSeverity feed.Severity    `json:"default_severity"`
	Timeout         string           `json:"timeout"`
	ExtractContent  bool             `json:"extract_content"`
	Status          *feed.FeedStatus `json:"status,omitempty"`
}
