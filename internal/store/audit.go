package store

import (
	"database/sql"
	"encoding/json"
	"time"

	curatorerrors "github.com/nodecurio/curator/internal/errors"
)

// insertAudit writes one append-only hierarchy_audit_log row inside an
// already-open transaction, so audit entries are never observed without
// the write they describe (spec §4.4/§4.8).
func insertAudit(tx *sql.Tx, e AuditEntry) error {
	if e.ChangedAt.IsZero() {
		e.ChangedAt = time.Now().UTC()
	}
	related, err := json.Marshal(e.RelatedNodeIDs)
	if err != nil {
		return curatorerrors.Wrap(curatorerrors.KindInvalidInput, err, "marshal related node ids")
	}
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return curatorerrors.Wrap(curatorerrors.KindInvalidInput, err, "marshal audit metadata")
	}
	_, err = tx.Exec(`
INSERT INTO hierarchy_audit_log (node_id, hierarchy_type, old_code, new_code, change_type, triggered_by, reason, related_node_ids, metadata, changed_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		e.NodeID, string(e.HierarchyType), nullable(e.OldCode), nullable(e.NewCode),
		string(e.ChangeType), string(e.TriggeredBy), e.Reason, string(related), string(meta), e.ChangedAt)
	if err != nil {
		return mapSQLiteErr(err)
	}
	return nil
}

// GetAuditLog returns every audit entry recorded for a node, oldest first.
func (s *Store) GetAuditLog(nodeID string) ([]AuditEntry, error) {
	rows, err := s.db.Query(`
SELECT id, node_id, hierarchy_type, old_code, new_code, change_type, triggered_by, reason, related_node_ids, metadata, changed_at
FROM hierarchy_audit_log WHERE node_id = ? ORDER BY changed_at ASC`, nodeID)
	if err != nil {
		return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "get audit log")
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var hierarchyType, changeType, triggeredBy, related, meta string
		var oldCode, newCode sql.NullString
		if err := rows.Scan(&e.ID, &e.NodeID, &hierarchyType, &oldCode, &newCode, &changeType, &triggeredBy, &e.Reason, &related, &meta, &e.ChangedAt); err != nil {
			return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "scan audit row")
		}
		e.HierarchyType = View(hierarchyType)
		e.ChangeType = ChangeType(changeType)
		e.TriggeredBy = TriggeredBy(triggeredBy)
		e.OldCode = oldCode.String
		e.NewCode = newCode.String
		_ = json.Unmarshal([]byte(related), &e.RelatedNodeIDs)
		_ = json.Unmarshal([]byte(meta), &e.Metadata)
		entries = append(entries, e)
	}
	return entries, nil
}
