package config

import "fmt"

// LLMConfig configures the google.golang.org/genai client shared by the
// Phase-1 Classifier and Phase-2 Enricher.
type LLMConfig struct {
	Provider string `yaml:"provider"` // always "gemini" for now
	APIKey   string `yaml:"api_key,omitempty"`
	Model    string `yaml:"model"`

	Timeout          string `yaml:"timeout"`           // not read by internal/llmclient; a call is bounded only by its caller's context
	MaxConcurrency   int    `yaml:"max_concurrency"`    // validated (>= 1) but not read; internal/llmclient applies no concurrency cap to LLM calls
	CircuitBreaker   CircuitBreakerConfig `yaml:"circuit_breaker"`
	ClassifyCacheTTL string `yaml:"classify_cache_ttl"` // Phase-1 classification cache TTL (§4.4, default 1h)
}

// CircuitBreakerConfig configures the sony/gobreaker wrapper around LLM
// calls, tripping the classifier to its URL-pattern fallback after
// repeated failures.
type CircuitBreakerConfig struct {
	MaxRequests      uint32  `yaml:"max_requests"`       // half-open probe budget
	Interval         string  `yaml:"interval"`           // closed-state counter reset window
	Timeout          string  `yaml:"timeout"`            // open-state cooldown before half-open
	FailureThreshold float64 `yaml:"failure_threshold"`  // failed/total request ratio within the interval that trips the breaker (checked from 4 requests on)
}

func defaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider: "gemini",
		Model:    "gemini-2.0-flash",
		Timeout:  "30s",
		MaxConcurrency: 8,
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:      3,
			Interval:         "60s",
			Timeout:          "30s",
			FailureThreshold: 0.6,
		},
		ClassifyCacheTTL: "1h",
	}
}

func (c LLMConfig) validate() error {
	if c.Provider == "" {
		return fmt.Errorf("config: llm.provider must not be empty")
	}
	if c.Model == "" {
		return fmt.Errorf("config: llm.model must not be empty")
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("config: llm.max_concurrency must be >= 1")
	}
	// APIKey is intentionally not required here: it may arrive later via
	// GEMINI_API_KEY at applyEnvOverrides time, and its absence should
	// surface as LLM_NOT_INITIALIZED at call time, not crash boot outright
	// when operators run with a fallback-only classifier during local dev.
	return nil
}
