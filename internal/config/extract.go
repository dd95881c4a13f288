package config

import "fmt"

// ExtractConfig configures the extractor registry (§4.2): per-extractor
// fetch timeout, per-host concurrency, and body-size ceiling.
type ExtractConfig struct {
	DefaultTimeout       string `yaml:"default_timeout"`        // default "30s"
	MaxBodyBytes         int64  `yaml:"max_body_bytes"`         // default 10 MiB
	PerHostConcurrency   int    `yaml:"per_host_concurrency"`
	GlobalConcurrency    int    `yaml:"global_concurrency"`      // global fetch-concurrency cap (§5)

	// APIKeyEnvVars lists the environment variables checked for
	// extractor-specific API keys (e.g. a YouTube data API key); resolved
	// values land in APIKeys keyed by the variable name.
	APIKeyEnvVars []string          `yaml:"api_key_env_vars"`
	APIKeys       map[string]string `yaml:"-"`
}

func defaultExtractConfig() ExtractConfig {
	return ExtractConfig{
		DefaultTimeout:     "30s",
		MaxBodyBytes:       10 * 1024 * 1024,
		PerHostConcurrency: 2,
		GlobalConcurrency:  16,
		APIKeyEnvVars:      []string{},
	}
}

func (c ExtractConfig) validate() error {
	if c.MaxBodyBytes < 1 {
		return fmt.Errorf("config: extract.max_body_bytes must be >= 1")
	}
	if c.PerHostConcurrency < 1 {
		return fmt.Errorf("config: extract.per_host_concurrency must be >= 1")
	}
	if c.GlobalConcurrency < c.PerHostConcurrency {
		return fmt.Errorf("config: extract.global_concurrency must be >= per_host_concurrency")
	}
	return nil
}
