// Package config loads and validates the curator service's configuration.
// Structure mirrors the teacher's internal/config package: one aggregate
// Config struct, one file per concern, a DefaultConfig constructor, and a
// Load/Save pair built on gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nodecurio/curator/internal/logging"
	"gopkg.in/yaml.v3"
)

// Config aggregates every concern's settings into a single tree, loaded
// from one YAML file.
type Config struct {
	DataDir string `yaml:"data_dir"`

	LLM       LLMConfig       `yaml:"llm"`
	Store     StoreConfig     `yaml:"store"`
	Queue     QueueConfig     `yaml:"queue"`
	Extract   ExtractConfig   `yaml:"extract"`
	HTTP      HTTPConfig      `yaml:"http"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
	HCache    HCacheConfig    `yaml:"hcache"`
}

// DefaultConfig returns a Config with every field set to a workable
// default, the way the teacher's DefaultConfig seeds a runnable instance
// with no file on disk.
func DefaultConfig() *Config {
	return &Config{
		DataDir:   "./data",
		LLM:       defaultLLMConfig(),
		Store:     defaultStoreConfig(),
		Queue:     defaultQueueConfig(),
		Extract:   defaultExtractConfig(),
		HTTP:      defaultHTTPConfig(),
		RateLimit: defaultRateLimitConfig(),
		Logging:   defaultLoggingConfig(),
		HCache:    defaultHCacheConfig(),
	}
}

// Load reads path, falling back to DefaultConfig when the file doesn't
// exist. Environment overrides are applied after the file is parsed, and
// Validate runs last so boot fails fast on a bad configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Boot("config file not found at %s, using defaults", path)
			cfg.applyEnvOverrides()
			if verr := cfg.Validate(); verr != nil {
				return nil, verr
			}
			return cfg, nil
		}
		logging.BootError("failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		logging.BootError("failed to parse config file %s: %v", path, err)
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logging.Boot("config loaded from %s", path)
	return cfg, nil
}

// Save marshals cfg back to path, creating the parent directory if needed.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: mkdir %s: %w", dir, err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides on top of the
// file-loaded configuration, the credentials-from-env-first rule from
// SPEC_FULL.md's Configuration section.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if v := os.Getenv("CURATOR_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("CURATOR_DB_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("CURATOR_HTTP_ADDR"); v != "" {
		c.HTTP.ListenAddr = v
	}
	for _, key := range c.Extract.APIKeyEnvVars {
		if v := os.Getenv(key); v != "" {
			if c.Extract.APIKeys == nil {
				c.Extract.APIKeys = make(map[string]string)
			}
			c.Extract.APIKeys[key] = v
		}
	}
}

// Validate fails fast on a configuration that would leave the process
// unable to serve traffic correctly, per the spec's "configuration errors
// crash the process on boot, never at request time" rule.
func (c *Config) Validate() error {
	if err := c.LLM.validate(); err != nil {
		return err
	}
	if err := c.Store.validate(); err != nil {
		return err
	}
	if err := c.Queue.validate(); err != nil {
		return err
	}
	if err := c.Extract.validate(); err != nil {
		return err
	}
	if err := c.HTTP.validate(); err != nil {
		return err
	}
	if err := c.RateLimit.validate(); err != nil {
		return err
	}
	if err := c.Logging.validate(); err != nil {
		return err
	}
	if err := c.HCache.validate(); err != nil {
		return err
	}
	return nil
}
