// Package config loads and validates engine configuration from a YAML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all engine configuration.
type Config struct {
	// DataDir is where the SQLite store, logs, and the species dataset
	// live. Defaults to ~/.conservatory.
	DataDir string `yaml:"data_dir"`

	LLM       LLMConfig       `yaml:"llm"`
	Providers ProvidersConfig `yaml:"providers"`
	Library   LibraryConfig   `yaml:"library"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LLMConfig configures the intent transducer and discovery provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, openai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// ProvidersConfig configures the enrichment HTTP providers.
type ProvidersConfig struct {
	GBIFBaseURL        string `yaml:"gbif_base_url"`
	WikipediaBaseURL   string `yaml:"wikipedia_base_url"`
	INaturalistBaseURL string `yaml:"inaturalist_base_url"`
	Timeout            string `yaml:"timeout"`

	// DiscoveryTimeout bounds the AI-discovery enrichment stage, the most
	// expensive stage in the pipeline.
	DiscoveryTimeout string `yaml:"discovery_timeout"`
}

// LibraryConfig configures the species cache and the bundled dataset.
type LibraryConfig struct {
	DatasetPath    string `yaml:"dataset_path"`    // YAML species dataset
	WatchDataset   bool   `yaml:"watch_dataset"`   // hot-reload on file change
	MemoryCapacity int    `yaml:"memory_capacity"` // memory-tier LRU bound
	TTLDays        int    `yaml:"ttl_days"`        // enrichment record TTL
}

// CacheConfig configures the intent-parse cache.
type CacheConfig struct {
	IntentCapacity int `yaml:"intent_capacity"`
}

// LoggingConfig configures categorized debug logging.
type LoggingConfig struct {
	Debug      bool            `yaml:"debug"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".conservatory")
	return &Config{
		DataDir: dataDir,
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
			Timeout:  "60s",
		},
		Providers: ProvidersConfig{
			GBIFBaseURL:        "https://api.gbif.org/v1",
			WikipediaBaseURL:   "https://en.wikipedia.org/w/api.php",
			INaturalistBaseURL: "https://api.inaturalist.org/v1",
			Timeout:            "15s",
			DiscoveryTimeout:   "45s",
		},
		Library: LibraryConfig{
			DatasetPath:    filepath.Join(dataDir, "species.yaml"),
			MemoryCapacity: 500,
			TTLDays:        90,
		},
		Cache: CacheConfig{
			IntentCapacity: 50,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path, layering it over defaults and then
// applying environment overrides. A missing file is not an error; defaults
// plus environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants the rest of the engine assumes.
func (c *Config) Validate() error {
	if c.Library.MemoryCapacity < 0 {
		return fmt.Errorf("library.memory_capacity must be >= 0")
	}
	if c.Cache.IntentCapacity < 0 {
		return fmt.Errorf("cache.intent_capacity must be >= 0")
	}
	if c.Library.TTLDays <= 0 {
		return fmt.Errorf("library.ttl_days must be positive")
	}
	for name, v := range map[string]string{
		"llm.timeout":                 c.LLM.Timeout,
		"providers.timeout":           c.Providers.Timeout,
		"providers.discovery_timeout": c.Providers.DiscoveryTimeout,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: invalid duration %q", name, v)
		}
	}
	switch c.LLM.Provider {
	case "", "gemini", "openai":
	default:
		return fmt.Errorf("llm.provider must be gemini or openai, got %q", c.LLM.Provider)
	}
	return nil
}

// ProviderTimeout returns the parsed HTTP provider timeout.
func (c *Config) ProviderTimeout() time.Duration {
	return parseDurationOr(c.Providers.Timeout, 15*time.Second)
}

// DiscoveryTimeout returns the parsed AI-discovery stage timeout.
func (c *Config) DiscoveryTimeout() time.Duration {
	return parseDurationOr(c.Providers.DiscoveryTimeout, 45*time.Second)
}

// TTL returns the parsed species record TTL.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.Library.TTLDays) * 24 * time.Hour
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
