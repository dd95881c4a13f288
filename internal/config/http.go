package config

import "fmt"

// HTTPConfig configures the chi-based REST + SSE surface (§6).
type HTTPConfig struct {
	ListenAddr      string `yaml:"listen_addr"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	IdleTimeout     string `yaml:"idle_timeout"`
	MaxBatchImport  int    `yaml:"max_batch_import"` // validated (>= 1) but not read; internal/api caps batch imports at a fixed 50 URLs
	SSEHeartbeat    string `yaml:"sse_heartbeat"`    // not read; /api/events sends no keep-alive comments
}

func defaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		ListenAddr:     ":8080",
		ReadTimeout:    "15s",
		WriteTimeout:   "30s",
		IdleTimeout:    "60s",
		MaxBatchImport: 50,
		SSEHeartbeat:   "15s",
	}
}

func (c HTTPConfig) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: http.listen_addr must not be empty")
	}
	if c.MaxBatchImport < 1 {
		return fmt.Errorf("config: http.max_batch_import must be >= 1")
	}
	return nil
}
