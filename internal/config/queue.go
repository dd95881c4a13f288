package config

import "fmt"

// QueueConfig configures the durable processing queue and its reaper,
// matching the backoff and visibility-timeout defaults from §4.6.
type QueueConfig struct {
	WorkerPoolSize     int    `yaml:"worker_pool_size"`     // Phase-2 Enricher worker count (default 3)
	DefaultMaxAttempts int    `yaml:"default_max_attempts"`
	BackoffBase        string `yaml:"backoff_base"`         // default "1s"
	BackoffCeiling     string `yaml:"backoff_ceiling"`      // default "5m"
	VisibilityTimeout  string `yaml:"visibility_timeout"`   // reaper cutoff for orphaned processing jobs, default "10m"
	ReaperInterval     string `yaml:"reaper_interval"`
	JanitorRetention   string `yaml:"janitor_retention"`    // clearCompleted(olderThan) default window
	JanitorInterval    string `yaml:"janitor_interval"`
}

func defaultQueueConfig() QueueConfig {
	return QueueConfig{
		WorkerPoolSize:     3,
		DefaultMaxAttempts: 5,
		BackoffBase:        "1s",
		BackoffCeiling:     "5m",
		VisibilityTimeout:  "10m",
		ReaperInterval:     "1m",
		JanitorRetention:   "168h",
		JanitorInterval:    "15m",
	}
}

func (c QueueConfig) validate() error {
	if c.WorkerPoolSize < 1 {
		return fmt.Errorf("config: queue.worker_pool_size must be >= 1")
	}
	if c.DefaultMaxAttempts < 1 {
		return fmt.Errorf("config: queue.default_max_attempts must be >= 1")
	}
	return nil
}
