package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/nodecurio/curator/internal/logging"
)

// migration is one versioned, reversible schema change, tracked by name in
// the _migrations table (spec §6). Unlike the teacher's additive
// ALTER-TABLE-if-missing migrations (internal/store/migrations.go), these
// run in their own transaction with an explicit Down, per the spec's
// persisted-layout section.
type migration struct {
	Name string
	Up   string
	Down string
}

var migrations = []migration{
	{
		Name: "0001_create_nodes",
		Up: `
CREATE TABLE nodes (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL,
	source_domain TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	segment_code TEXT NOT NULL DEFAULT '',
	category_code TEXT NOT NULL DEFAULT '',
	content_type_code TEXT NOT NULL DEFAULT '',
	function_hierarchy_code TEXT NOT NULL DEFAULT '',
	organization_hierarchy_code TEXT NOT NULL DEFAULT '',
	function_parent_id TEXT,
	organization_parent_id TEXT,
	extracted_fields TEXT NOT NULL DEFAULT '{}',
	metadata_tags TEXT NOT NULL DEFAULT '[]',
	short_description TEXT NOT NULL DEFAULT '',
	phrase_description TEXT NOT NULL DEFAULT '',
	ai_summary TEXT NOT NULL DEFAULT '',
	key_concepts TEXT NOT NULL DEFAULT '[]',
	descriptor TEXT NOT NULL DEFAULT '',
	logo_url TEXT NOT NULL DEFAULT '',
	is_deleted INTEGER NOT NULL DEFAULT 0,
	date_added DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX idx_nodes_function_code ON nodes(function_hierarchy_code) WHERE is_deleted = 0 AND function_hierarchy_code != '';
CREATE UNIQUE INDEX idx_nodes_org_code ON nodes(organization_hierarchy_code) WHERE is_deleted = 0 AND organization_hierarchy_code != '';
CREATE INDEX idx_nodes_url ON nodes(url) WHERE is_deleted = 0;
CREATE INDEX idx_nodes_date_added ON nodes(date_added);
CREATE INDEX idx_nodes_segment ON nodes(segment_code, category_code, content_type_code);
`,
		Down: `DROP TABLE nodes;`,
	},
	{
		Name: "0002_create_nodes_fts",
		Up: `
CREATE VIRTUAL TABLE nodes_fts USING fts5(
	id UNINDEXED,
	title, short_description, phrase_description, ai_summary,
	company, source_domain, key_concepts, descriptor
);
`,
		Down: `DROP TABLE nodes_fts;`,
	},
	{
		Name: "0003_create_metadata_registry",
		Up: `
CREATE TABLE metadata_code_registry (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL,
	code TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	usage_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(type, code)
);
CREATE TABLE node_metadata (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	node_id TEXT NOT NULL REFERENCES nodes(id),
	registry_id INTEGER NOT NULL REFERENCES metadata_code_registry(id),
	confidence REAL NOT NULL DEFAULT 1.0,
	source TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(node_id, registry_id)
);
CREATE INDEX idx_node_metadata_node ON node_metadata(node_id);
CREATE INDEX idx_node_metadata_registry ON node_metadata(registry_id);
`,
		Down: `DROP TABLE node_metadata; DROP TABLE metadata_code_registry;`,
	},
	{
		Name: "0004_create_processing_queue",
		Up: `
CREATE TABLE processing_queue (
	id TEXT PRIMARY KEY,
	node_id TEXT NOT NULL REFERENCES nodes(id),
	phase TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	priority INTEGER NOT NULL DEFAULT 0,
	attempts INTEGER NOT NULL DEFAULT 0,
	max_attempts INTEGER NOT NULL DEFAULT 5,
	error_message TEXT,
	owner TEXT,
	next_eligible_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	claimed_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	processed_at DATETIME
);
CREATE INDEX idx_queue_dispatch ON processing_queue(status, priority DESC, created_at ASC);
CREATE UNIQUE INDEX idx_queue_live_job ON processing_queue(node_id, phase) WHERE status IN ('pending', 'processing');
`,
		Down: `DROP TABLE processing_queue;`,
	},
	{
		Name: "0005_create_hierarchy_audit_log",
		Up: `
CREATE TABLE hierarchy_audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	node_id TEXT NOT NULL,
	hierarchy_type TEXT NOT NULL,
	old_code TEXT,
	new_code TEXT,
	change_type TEXT NOT NULL,
	triggered_by TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	related_node_ids TEXT NOT NULL DEFAULT '[]',
	metadata TEXT NOT NULL DEFAULT '{}',
	changed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX idx_audit_node ON hierarchy_audit_log(node_id);
CREATE INDEX idx_audit_changed_at ON hierarchy_audit_log(changed_at);
`,
		Down: `DROP TABLE hierarchy_audit_log;`,
	},
}

// RunMigrations applies every migration not yet recorded in _migrations,
// each in its own transaction, in order, failing and rolling back that
// migration's transaction on error (spec §6).
func RunMigrations(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS _migrations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`); err != nil {
		return fmt.Errorf("store: create _migrations table: %w", err)
	}

	applied := map[string]bool{}
	rows, err := db.Query(`SELECT name FROM _migrations`)
	if err != nil {
		return fmt.Errorf("store: read _migrations: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("store: scan migration row: %w", err)
		}
		applied[name] = true
	}
	rows.Close()

	ran := 0
	for _, m := range migrations {
		if applied[m.Name] {
			continue
		}

		logging.StoreDebug("applying migration %s", m.Name)
		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("store: migration %s: %w", m.Name, err)
		}
		ran++
	}

	logging.Store("migrations complete: %d applied, %d already current", ran, len(migrations)-ran)
	return nil
}

func applyMigration(db *sql.DB, m migration) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec(m.Up); err != nil {
		return fmt.Errorf("up: %w", err)
	}
	if _, err = tx.Exec(`INSERT INTO _migrations (name, applied_at) VALUES (?, ?)`, m.Name, time.Now().UTC()); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return tx.Commit()
}
