package store

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/mattn/go-sqlite3"

	curatorerrors "github.com/nodecurio/curator/internal/errors"
)

const nodeColumns = `
	id, title, url, source_domain, company, segment_code, category_code,
	content_type_code, function_hierarchy_code, organization_hierarchy_code,
	function_parent_id, organization_parent_id, extracted_fields,
	metadata_tags, short_description, phrase_description, ai_summary,
	key_concepts, descriptor, logo_url, is_deleted, date_added, created_at,
	updated_at`

// rowScanner abstracts *sql.Row and *sql.Rows so scanNode serves both.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*Node, error) {
	var n Node
	var functionParentID, organizationParentID sql.NullString
	var extracted, tags, keyConcepts string
	var isDeleted int

	err := row.Scan(
		&n.ID, &n.Title, &n.URL, &n.SourceDomain, &n.Company, &n.SegmentCode, &n.CategoryCode,
		&n.ContentTypeCode, &n.FunctionHierarchyCode, &n.OrganizationHierarchyCode,
		&functionParentID, &organizationParentID, &extracted,
		&tags, &n.ShortDescription, &n.PhraseDescription, &n.AISummary,
		&keyConcepts, &n.Descriptor, &n.LogoURL, &isDeleted, &n.DateAdded, &n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.FunctionParentID = functionParentID.String
	n.OrganizationParentID = organizationParentID.String
	n.IsDeleted = isDeleted != 0
	n.MetadataTags = unmarshalStrings(tags)
	n.KeyConcepts = unmarshalStrings(keyConcepts)

	var fields map[string]any
	if err := json.Unmarshal([]byte(extracted), &fields); err == nil {
		n.ExtractedFields = fields
	}

	return &n, nil
}

// upsertFTS keeps the nodes_fts index consistent with nodes in
// the same transaction every write goes through (spec §4.4 invariant).
func upsertFTS(tx *sql.Tx, n *Node) error {
	if _, err := tx.Exec(`DELETE FROM nodes_fts WHERE id = ?`, n.ID); err != nil {
		return mapSQLiteErr(err)
	}
	_, err := tx.Exec(`
INSERT INTO nodes_fts (id, title, short_description, phrase_description, ai_summary, company, source_domain, key_concepts, descriptor)
VALUES (?,?,?,?,?,?,?,?,?)`,
		n.ID, n.Title, n.ShortDescription, n.PhraseDescription, n.AISummary, n.Company, n.SourceDomain,
		strings.Join(n.KeyConcepts, " "), n.Descriptor)
	if err != nil {
		return mapSQLiteErr(err)
	}
	return nil
}

// mapSQLiteErr translates driver-level constraint violations into the
// curator error taxonomy so callers never see a raw sqlite3.Error.
func mapSQLiteErr(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if ok := asSqliteErr(err, &sqliteErr); ok {
		if sqliteErr.Code == sqlite3.ErrConstraint {
			return curatorerrors.Wrap(curatorerrors.KindDatabaseConstraintViolation, err, "constraint violation")
		}
	}
	return curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "query failed")
}

func asSqliteErr(err error, target *sqlite3.Error) bool {
	if e, ok := err.(sqlite3.Error); ok {
		*target = e
		return true
	}
	return false
}
