package config

import "fmt"

// RateLimitConfig configures the golang.org/x/time/rate token buckets
// scoped per client identifier (§5, §6: global, import, settings).
type RateLimitConfig struct {
	GlobalRPS   float64 `yaml:"global_rps"`
	GlobalBurst int     `yaml:"global_burst"`

	ImportRPS   float64 `yaml:"import_rps"`
	ImportBurst int     `yaml:"import_burst"`

	SettingsRPS   float64 `yaml:"settings_rps"`
	SettingsBurst int     `yaml:"settings_burst"`
}

func defaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		GlobalRPS:     50,
		GlobalBurst:   100,
		ImportRPS:     2,
		ImportBurst:   5,
		SettingsRPS:   1,
		SettingsBurst: 2,
	}
}

func (c RateLimitConfig) validate() error {
	if c.GlobalRPS <= 0 || c.ImportRPS <= 0 || c.SettingsRPS <= 0 {
		return fmt.Errorf("config: rate_limit.*_rps must be > 0")
	}
	if c.GlobalBurst < 1 || c.ImportBurst < 1 || c.SettingsBurst < 1 {
		return fmt.Errorf("config: rate_limit.*_burst must be >= 1")
	}
	return nil
}
