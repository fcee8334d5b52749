package feed

import (
	"time"
)

// Severity levels, ordered from least to most severe.

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

type State string

const (
	StateActive State = "active"
	StateError  State = "error"
)

// Feed processing types

type RawEntry struct {
	Title          string
	Description    string
	Link           string
	PublishedAtRaw string
	GUID           string
	Authors        []string // "email (name)", "name" or "email"
	Categories     []string // declaration order, duplicates kept
	RichContent    string   // content:encoded / atom content, if the feed carries it
}

type ParsedFeed struct {
	FeedID        string
	Title         string
	Description   string
	Link          string
	LastBuildDate string
	Entries       []RawEntry
	FetchedAt     time.Time
}

type ThreatItem struct {
	ID          string    `json:"id"`
	FeedID      string    `json:"feedId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
	Severity    Severity  `json:"severity"`
	Categories  []string  `json:"categories"`
	ThreatType  string    `json:"threatType"`
	Indicators  []string  `json:"indicators"`
	Source      string    `json:"source"`
	RawContent  string    `json:"rawContent,omitempty"`
	ProcessedAt time.Time `json:"processedAt"`
}

type FeedStatus struct {
	FeedID     string     `json:"feedId"`
	Status     State      `json:"status"`
	LastUpdate *time.Time `json:"lastUpdate,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type Result struct {
	Items    []ThreatItem `json:"items"`
	Statuses []FeedStatus `json:"statuses"`
}

// Configuration types

type Config struct {
	FeedID          string         // Derived from filename (without .yml extension)
	URL             string         `yaml:"url" validate:"required,url"`
	DefaultSeverity Severity       `yaml:"default_severity" validate:"oneof=low medium high critical"`
	Settings        ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled        bool `yaml:"enabled"`
	Timeout        int  `yaml:"timeout" validate:"gte=0"` // seconds
	ExtractContent bool `yaml:"extract_content"`          // fetch linked articles when the feed has no full text
}

func (c *Config) GetTimeout() time.Duration {
	if c.Settings.Timeout <= 0 {
		return 0
	}
	return time.Duration(c.Settings.Timeout) * time.Second
}
