package config

import "fmt"

// LoggingConfig configures both the category-based file logger
// (internal/logging) and the process-level zap logger built in
// cmd/curator/main.go.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`       // zap level: debug, info, warn, error
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"`   // per-category file-logger toggle, empty = all enabled
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		DebugMode:  false,
		Level:      "info",
		JSONFormat: true,
		Categories: map[string]bool{},
	}
}

func (c LoggingConfig) validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging.level must be one of debug|info|warn|error, got %q", c.Level)
	}
	return nil
}
