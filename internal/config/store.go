package config

import "fmt"

// StoreConfig configures the embedded mattn/go-sqlite3 Node Store.
type StoreConfig struct {
	Path            string `yaml:"path"`              // sqlite file path, relative to DataDir if not absolute
	MaxOpenConns    int    `yaml:"max_open_conns"`     // validated (>= 1) but not read; store.Open always uses one connection
	BusyTimeout     string `yaml:"busy_timeout"`       // not read; store.Open always sets busy_timeout to 5000 ms
	MigrationsTable string `yaml:"migrations_table"`   // not read; migrations are always tracked in _migrations
}

func defaultStoreConfig() StoreConfig {
	return StoreConfig{
		Path:            "curator.db",
		MaxOpenConns:    1, // single-writer SQLite; readers share the same pooled conn
		BusyTimeout:     "5s",
		MigrationsTable: "_migrations",
	}
}

func (c StoreConfig) validate() error {
	if c.Path == "" {
		return fmt.Errorf("config: store.path must not be empty")
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("config: store.max_open_conns must be >= 1")
	}
	return nil
}
