package feed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type ConfigCache struct {
	feedsDir string
	cache    map[string]*Config
	validate *validator.Validate
	mu       sync.RWMutex
}

func NewConfigCache(feedsDir string) *ConfigCache {
	return &ConfigCache{
		feedsDir: feedsDir,
		cache:    make(map[string]*Config),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Run (re)loads every *.yml file in the feeds directory. The cache is replaced
// only when all files load, so a broken edit keeps the previous set live.
func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.feedsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.feedsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	loaded := make(map[string]*Config, len(files))
	for _, file := range files {
		feedID := strings.TrimSuffix(filepath.Base(file), ".yml")

		feedConfig, err := cc.loadFile(feedID)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}
		loaded[feedID] = feedConfig
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache = loaded

	return nil
}

func (cc *ConfigCache) LoadConfig(feedID string) (*Config, error) {
	feedConfig, err := cc.loadFile(feedID)
	if err != nil {
		return nil, err
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[feedConfig.FeedID] = feedConfig

	return feedConfig, nil
}

func (cc *ConfigCache) GetConfig(feedID string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	feedConfig, ok := cc.cache[feedID]
	if !ok {
		return nil, fmt.Errorf("feed config with id '%s' not found", feedID)
	}
	return feedConfig, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

// GetEnabledConfigs returns enabled feeds ordered by feed id.
func (cc *ConfigCache) GetEnabledConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make([]*Config, 0, len(cc.cache))
	for _, v := range cc.cache {
		if v.Settings.Enabled {
			enabledConfigs = append(enabledConfigs, v)
		}
	}
	slices.SortFunc(enabledConfigs, func(a, b *Config) int {
		return strings.Compare(a.FeedID, b.FeedID)
	})
	return enabledConfigs
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) loadFile(feedID string) (*Config, error) {
	configFile := cc.getConfigFilePath(feedID)
	feedConfig, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	feedConfig.FeedID = feedID

	if err := cc.validateConfig(feedConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	return feedConfig, nil
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Feeds are enabled unless the file says otherwise.
	feedConfig := Config{Settings: ConfigSettings{Enabled: true}}
	if err := yaml.Unmarshal(data, &feedConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if feedConfig.DefaultSeverity == "" {
		feedConfig.DefaultSeverity = SeverityLow
	}
	feedConfig.DefaultSeverity = Severity(strings.ToLower(string(feedConfig.DefaultSeverity)))
	if feedConfig.Settings.Timeout == 0 {
		feedConfig.Settings.Timeout = 30
	}

	return &feedConfig, nil
}

func (cc *ConfigCache) validateConfig(feedConfig *Config) error {
	if feedConfig == nil {
		return fmt.Errorf("feedConfig is nil")
	}

	if feedConfig.FeedID == "" {
		return fmt.Errorf("feed id is required")
	}

	if err := cc.validate.Struct(feedConfig); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("field %s failed '%s' validation (value %q)", fe.Namespace(), fe.Tag(), fmt.Sprint(fe.Value()))
		}
		return err
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(feedID string) string {
	return filepath.Join(cc.feedsDir, feedID+".yml")
}
