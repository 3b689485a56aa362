package feed

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gilliek/go-opml/opml"
	"gopkg.in/yaml.v3"
)

// ConfigCache holds the sources and relevance policy loaded from the feeds
// file. Run may be called again to reload the file.
type ConfigCache struct {
	feedsFile string
	sources   []*Source
	byName    map[string]*Source
	relevance RelevanceConfig
	logger    *slog.Logger
	mu        sync.RWMutex
}

func NewConfigCache(feedsFile string, logger *slog.Logger) *ConfigCache {
	return &ConfigCache{
		feedsFile: feedsFile,
		byName:    make(map[string]*Source),
		relevance: RelevanceConfig{Positive: DefaultPositiveTags, Exclusion: DefaultExclusionTags},
		logger:    logger,
	}
}

func (cc *ConfigCache) Run() error {
	config, err := LoadConfig(cc.feedsFile)
	if err != nil {
		return fmt.Errorf("error loading %s: %w", cc.feedsFile, err)
	}

	byName := make(map[string]*Source, len(config.Sources))
	for _, source := range config.Sources {
		byName[source.Name] = source
		cc.logger.Debug("Source loaded", "source", source.Name, "url", source.URL, "enabled", source.Enabled(), "image_strategy", source.Image.Strategy)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.sources = config.Sources
	cc.byName = byName
	cc.relevance = config.Relevance

	return nil
}

func (cc *ConfigCache) GetSource(name string) (*Source, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	source, ok := cc.byName[name]
	if !ok {
		return nil, fmt.Errorf("source with name '%s' not found", name)
	}
	return source, nil
}

// GetSources returns all sources in file order.
func (cc *ConfigCache) GetSources() []*Source {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	sourcesCopy := make([]*Source, len(cc.sources))
	copy(sourcesCopy, cc.sources)
	return sourcesCopy
}

func (cc *ConfigCache) GetEnabledSources() []*Source {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	var enabled []*Source
	for _, source := range cc.sources {
		if source.Enabled() {
			enabled = append(enabled, source)
		}
	}
	return enabled
}

func (cc *ConfigCache) GetSourceCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.sources)
}

func (cc *ConfigCache) Relevance() RelevanceConfig {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return cc.relevance
}

// LoadConfig reads a feeds file. YAML files carry per-source settings and
// the relevance policy; OPML files are a plain subscription list.
func LoadConfig(path string) (*Config, error) {
	var (
		config *Config
		err    error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		config, err = parseYAML(path)
	case ".opml", ".xml":
		config, err = parseOPML(path)
	default:
		return nil, fmt.Errorf("unsupported feeds file extension: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	if len(config.Relevance.Positive) == 0 {
		config.Relevance.Positive = DefaultPositiveTags
	}
	if config.Relevance.Exclusion == nil {
		config.Relevance.Exclusion = DefaultExclusionTags
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

func parseYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

func parseOPML(path string) (*Config, error) {
	doc, err := opml.NewOPMLFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OPML: %w", err)
	}

	var config Config
	for _, outline := range doc.Outlines() {
		config.Sources = append(config.Sources, sourcesFromOutline(outline)...)
	}

	return &config, nil
}

func sourcesFromOutline(outline opml.Outline) []*Source {
	var sources []*Source

	if outline.XMLURL != "" {
		name := strings.TrimSpace(outline.Title)
		if name == "" {
			name = strings.TrimSpace(outline.Text)
		}
		if name == "" {
			name = outline.XMLURL
		}
		sources = append(sources, &Source{Name: name, URL: outline.XMLURL})
	}

	for _, child := range outline.Outlines {
		sources = append(sources, sourcesFromOutline(child)...)
	}

	return sources
}

func validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	seen := make(map[string]bool, len(config.Sources))
	for i, source := range config.Sources {
		if source == nil {
			return fmt.Errorf("source at index %d is empty", i)
		}

		requiredFields := map[string]string{
			"source name": source.Name,
			"source URL":  source.URL,
		}
		for fieldName, fieldValue := range requiredFields {
			if fieldValue == "" {
				return fmt.Errorf("%s is required at index %d", fieldName, i)
			}
		}

		if seen[source.Name] {
			return fmt.Errorf("duplicate source name: %s", source.Name)
		}
		seen[source.Name] = true

		if source.Settings.Timeout < 0 {
			return fmt.Errorf("timeout must be non-negative for source %s", source.Name)
		}

		switch source.Image.Strategy {
		case "", "none", "og_image":
		case "selector":
			if source.Image.Selector == "" {
				return fmt.Errorf("image selector is required for source %s", source.Name)
			}
		default:
			return fmt.Errorf("invalid image strategy for source %s: %s", source.Name, source.Image.Strategy)
		}
	}

	policy := map[string][]string{
		"positive":  config.Relevance.Positive,
		"exclusion": config.Relevance.Exclusion,
	}
	for listName, labels := range policy {
		for _, label := range labels {
			if !IsTaxonomyLabel(label) {
				return fmt.Errorf("invalid %s relevance tag: %s", listName, label)
			}
		}
	}

	return nil
}
