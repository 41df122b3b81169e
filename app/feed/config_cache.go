package feed

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type ConfigCache struct {
	channelsDir string
	cache       map[string]*Config
	mu          sync.RWMutex
}

func NewConfigCache(channelsDir string) *ConfigCache {
	return &ConfigCache{
		channelsDir: channelsDir,
		cache:       make(map[string]*Config),
	}
}

// Run loads every <name>.yml in the channels directory. A missing
// directory means no channels.
func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.channelsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.channelsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := cc.LoadConfig(name)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Channel configuration loaded", "channel", name, "creator", config.Creator.ID, "enabled", config.Settings.Enabled)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(name string) (*Config, error) {
	configFile := filepath.Join(cc.channelsDir, name+".yml")
	config, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	config.Name = name
	config.Creator.ID = cmp.Or(config.Creator.ID, name)
	config.Creator.Handle = cmp.Or(config.Creator.Handle, name)

	if err := cc.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[config.Name] = config

	return config, nil
}

func (cc *ConfigCache) GetConfig(name string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	config, ok := cc.cache[name]
	if !ok {
		return nil, fmt.Errorf("channel config with name '%s' not found", name)
	}
	return config, nil
}

// GetConfigs returns all channels sorted by name.
func (cc *ConfigCache) GetConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configs := make([]*Config, 0, len(cc.cache))
	for _, c := range cc.cache {
		configs = append(configs, c)
	}
	slices.SortFunc(configs, func(a, b *Config) int { return cmp.Compare(a.Name, b.Name) })
	return configs
}

func (cc *ConfigCache) GetEnabledConfigs() []*Config {
	var enabled []*Config
	for _, c := range cc.GetConfigs() {
		if c.Settings.Enabled {
			enabled = append(enabled, c)
		}
	}
	return enabled
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if config.Settings.RefreshInterval == 0 {
		config.Settings.RefreshInterval = 3600
	}
	if config.Settings.MaxItems == 0 {
		config.Settings.MaxItems = 50
	}
	if config.Settings.Timeout == 0 {
		config.Settings.Timeout = 30
	}

	return &config, nil
}

var filterFields = map[string]bool{
	"title":       true,
	"description": true,
	"tags":        true,
	"link":        true,
}

func (cc *ConfigCache) validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}
	if config.URL == "" {
		return fmt.Errorf("channel URL is required")
	}

	nonNegative := map[string]int{
		"refresh interval": config.Settings.RefreshInterval,
		"max items":        config.Settings.MaxItems,
		"timeout":          config.Settings.Timeout,
	}
	for field, value := range nonNegative {
		if value < 0 {
			return fmt.Errorf("%s must be non-negative", field)
		}
	}

	for i, filter := range config.Filters {
		if !filterFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}
