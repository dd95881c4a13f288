package store

import (
	"database/sql"

	curatorerrors "github.com/nodecurio/curator/internal/errors"
)

// registryID looks up (or creates) the metadata_code_registry row for a
// (type, code) pair, inside an open transaction.
func registryID(tx *sql.Tx, mtype, code string) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM metadata_code_registry WHERE type = ? AND code = ?`, mtype, code).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, mapSQLiteErr(err)
	}
	res, err := tx.Exec(`INSERT INTO metadata_code_registry (type, code) VALUES (?, ?)`, mtype, code)
	if err != nil {
		return 0, mapSQLiteErr(err)
	}
	return res.LastInsertId()
}

// AddMetadata attaches codes to a node without disturbing codes already
// present, incrementing each touched registry entry's usage_count exactly
// once per call (spec §4.4: "usage_count tracks how many live nodes
// reference each registry entry").
func (s *Store) AddMetadata(nodeID string, codes []MetadataCode) error {
	return s.withTx(func(tx *sql.Tx) error {
		for _, c := range codes {
			rid, err := registryID(tx, c.Type, c.Code)
			if err != nil {
				return err
			}
			res, err := tx.Exec(`
INSERT OR IGNORE INTO node_metadata (node_id, registry_id, confidence, source) VALUES (?, ?, ?, ?)`,
				nodeID, rid, c.Confidence, c.Source)
			if err != nil {
				return mapSQLiteErr(err)
			}
			n, _ := res.RowsAffected()
			if n > 0 {
				if _, err := tx.Exec(`UPDATE metadata_code_registry SET usage_count = usage_count + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, rid); err != nil {
					return mapSQLiteErr(err)
				}
			}
		}
		return refreshMetadataTags(tx, nodeID)
	})
}

// SetMetadata replaces every code attached to a node with exactly the
// given set, decrementing usage_count for codes removed and incrementing
// it for codes newly added.
func (s *Store) SetMetadata(nodeID string, codes []MetadataCode) error {
	return s.withTx(func(tx *sql.Tx) error {
		rows, err := tx.Query(`SELECT registry_id FROM node_metadata WHERE node_id = ?`, nodeID)
		if err != nil {
			return mapSQLiteErr(err)
		}
		var existing []int64
		for rows.Next() {
			var rid int64
			if err := rows.Scan(&rid); err != nil {
				rows.Close()
				return mapSQLiteErr(err)
			}
			existing = append(existing, rid)
		}
		rows.Close()

		for _, rid := range existing {
			if _, err := tx.Exec(`UPDATE metadata_code_registry SET usage_count = MAX(usage_count - 1, 0), updated_at = CURRENT_TIMESTAMP WHERE id = ?`, rid); err != nil {
				return mapSQLiteErr(err)
			}
		}
		if _, err := tx.Exec(`DELETE FROM node_metadata WHERE node_id = ?`, nodeID); err != nil {
			return mapSQLiteErr(err)
		}

		for _, c := range codes {
			rid, err := registryID(tx, c.Type, c.Code)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(`INSERT INTO node_metadata (node_id, registry_id, confidence, source) VALUES (?, ?, ?, ?)`,
				nodeID, rid, c.Confidence, c.Source); err != nil {
				return mapSQLiteErr(err)
			}
			if _, err := tx.Exec(`UPDATE metadata_code_registry SET usage_count = usage_count + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, rid); err != nil {
				return mapSQLiteErr(err)
			}
		}

		return refreshMetadataTags(tx, nodeID)
	})
}

// GetMetadata returns every code currently attached to a node.
func (s *Store) GetMetadata(nodeID string) ([]MetadataCode, error) {
	rows, err := s.db.Query(`
SELECT r.type, r.code, nm.confidence, nm.source
FROM node_metadata nm JOIN metadata_code_registry r ON r.id = nm.registry_id
WHERE nm.node_id = ?`, nodeID)
	if err != nil {
		return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "get metadata")
	}
	defer rows.Close()

	var codes []MetadataCode
	for rows.Next() {
		var c MetadataCode
		if err := rows.Scan(&c.Type, &c.Code, &c.Confidence, &c.Source); err != nil {
			return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "scan metadata row")
		}
		codes = append(codes, c)
	}
	return codes, nil
}

// refreshMetadataTags denormalizes the current code list into nodes.metadata_tags
// ("TYPE:CODE" strings) so list/search responses don't need a join for the
// common case of just displaying tags.
func refreshMetadataTags(tx *sql.Tx, nodeID string) error {
	rows, err := tx.Query(`
SELECT r.type, r.code FROM node_metadata nm JOIN metadata_code_registry r ON r.id = nm.registry_id
WHERE nm.node_id = ? ORDER BY r.type, r.code`, nodeID)
	if err != nil {
		return mapSQLiteErr(err)
	}
	var tags []string
	for rows.Next() {
		var mtype, code string
		if err := rows.Scan(&mtype, &code); err != nil {
			rows.Close()
			return mapSQLiteErr(err)
		}
		tags = append(tags, mtype+":"+code)
	}
	rows.Close()

	if _, err := tx.Exec(`UPDATE nodes SET metadata_tags = ? WHERE id = ?`, marshalStrings(tags), nodeID); err != nil {
		return mapSQLiteErr(err)
	}
	return nil
}
