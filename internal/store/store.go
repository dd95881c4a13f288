// Package store implements the Node Store (spec §4.4): a transactional
// key-value-plus-relational layer over an embedded SQL engine. Structure
// follows the teacher's internal/store/local.go — a single *sql.DB behind
// a thin wrapper, WAL pragmas, a migration pass at open time — adapted
// from a multi-shard fact store to the curator's node/registry/queue/audit
// schema.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nodecurio/curator/internal/logging"
)

// Store wraps the embedded SQLite database backing nodes, the metadata
// registry, the processing queue and the hierarchy audit log.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open opens (creating if necessary) the SQLite database at path, applies
// pragmas tuned for a single-writer embedded workload, and runs any
// pending migrations.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	logging.Store("opening node store at %s", path)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logging.StoreError("failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("store: mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		logging.StoreError("failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.StoreDebug("pragma failed (%s): %v", pragma, err)
		}
	}

	s := &Store{db: db, dbPath: path}

	if err := RunMigrations(db); err != nil {
		db.Close()
		logging.StoreError("migrations failed: %v", err)
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	logging.Store("node store ready at %s", path)
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	logging.Store("closing node store")
	return s.db.Close()
}

// DB exposes the underlying connection for packages (queue, hcache
// invalidation hooks) that need to compose statements across concerns
// inside a single transaction.
func (s *Store) DB() *sql.DB {
	return s.db
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on error or panic — the teacher's local.go doesn't wrap
// transactions generically since its writes were mostly single-statement,
// but the hierarchy engine's restructure needs atomic multi-row writes, so
// this helper centralizes that pattern for every write path in this
// package.
func (s *Store) withTx(fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	err = fn(tx)
	return err
}
