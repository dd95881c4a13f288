package store

import (
	"database/sql"
	"fmt"
	"strings"

	curatorerrors "github.com/nodecurio/curator/internal/errors"
)

func hierarchyColumn(v View) string {
	if v == ViewOrganization {
		return "organization_hierarchy_code"
	}
	return "function_hierarchy_code"
}

// GetNodeByHierarchyCode looks up the single node occupying an exact code
// in the given view (codes are unique among non-deleted nodes).
func (s *Store) GetNodeByHierarchyCode(view View, code string) (*Node, error) {
	col := hierarchyColumn(view)
	row := s.db.QueryRow(fmt.Sprintf(`SELECT %s FROM nodes WHERE %s = ? AND is_deleted = 0`, nodeColumns, col), code)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, curatorerrors.New(curatorerrors.KindNodeNotFound, fmt.Sprintf("no node at %s code %s", view, code))
	}
	if err != nil {
		return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "get node by hierarchy code")
	}
	return n, nil
}

// GetSubtree returns every non-deleted node whose code in the given view is
// pathPrefix itself or starts with pathPrefix + ".", ordered by code so
// callers can rebuild the tree by string comparison alone.
func (s *Store) GetSubtree(view View, pathPrefix string) ([]Node, error) {
	col := hierarchyColumn(view)
	query := fmt.Sprintf(`
SELECT %s FROM nodes
WHERE is_deleted = 0 AND (%s = ? OR %s LIKE ?)
ORDER BY %s`, nodeColumns, col, col, col)
	rows, err := s.db.Query(query, pathPrefix, pathPrefix+".%")
	if err != nil {
		return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "get subtree")
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "scan subtree row")
		}
		nodes = append(nodes, *n)
	}
	return nodes, nil
}

// GetTree returns every non-deleted node in the given view, ordered by
// code, so callers can rebuild the whole hierarchy tree by string
// comparison alone (spec §4.9's getTree(view), the unprefixed counterpart
// of GetSubtree).
func (s *Store) GetTree(view View) ([]Node, error) {
	col := hierarchyColumn(view)
	query := fmt.Sprintf(`SELECT %s FROM nodes WHERE is_deleted = 0 ORDER BY %s`, nodeColumns, col)
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "get tree")
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "scan tree row")
		}
		nodes = append(nodes, *n)
	}
	return nodes, nil
}

// GetAncestry walks a node's code in the given view back up through every
// enclosing segment (SEG, SEG.CAT, SEG.CAT.CT, ...), returning the node
// occupying each ancestor code that exists, shallowest first.
func (s *Store) GetAncestry(view View, nodeID string) ([]Node, error) {
	n, err := s.Get(nodeID, false)
	if err != nil {
		return nil, err
	}

	code := n.FunctionHierarchyCode
	if view == ViewOrganization {
		code = n.OrganizationHierarchyCode
	}
	if code == "" {
		return nil, nil
	}

	parts := strings.Split(code, ".")
	var ancestry []Node
	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], ".")
		anc, err := s.GetNodeByHierarchyCode(view, prefix)
		if err != nil {
			if curatorerrors.Is(err, curatorerrors.KindNodeNotFound) {
				continue
			}
			return nil, err
		}
		ancestry = append(ancestry, *anc)
	}
	return ancestry, nil
}

// CodeTaken reports whether a non-deleted node already occupies code in the
// given view, used by the hierarchy engine's conflict detection before it
// commits a restructure plan.
func (s *Store) CodeTaken(view View, code string) (bool, error) {
	col := hierarchyColumn(view)
	var count int
	err := s.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM nodes WHERE %s = ? AND is_deleted = 0`, col), code).Scan(&count)
	if err != nil {
		return false, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "check code taken")
	}
	return count > 0, nil
}

// ApplyRestructurePlan atomically rewrites a batch of (nodeID -> new code)
// moves in the given view and records one "restructured" audit entry per
// affected node, so either the whole plan lands or none of it does (spec
// §4.5's conflict-resolution algorithm commits this way).
func (s *Store) ApplyRestructurePlan(view View, moves map[string]string, reason string) error {
	col := hierarchyColumn(view)
	return s.withTx(func(tx *sql.Tx) error {
		for nodeID, newCode := range moves {
			var oldCode string
			if err := tx.QueryRow(fmt.Sprintf(`SELECT %s FROM nodes WHERE id = ?`, col), nodeID).Scan(&oldCode); err != nil {
				return mapSQLiteErr(err)
			}
			if _, err := tx.Exec(fmt.Sprintf(`UPDATE nodes SET %s = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, col), newCode, nodeID); err != nil {
				return mapSQLiteErr(err)
			}
			if err := insertAudit(tx, AuditEntry{
				NodeID:        nodeID,
				HierarchyType: view,
				OldCode:       oldCode,
				NewCode:       newCode,
				ChangeType:    ChangeRestructured,
				TriggeredBy:   TriggeredByRestructure,
				Reason:        reason,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}
