package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	curatorerrors "github.com/nodecurio/curator/internal/errors"
	"github.com/nodecurio/curator/internal/logging"
)

// Create inserts a new node and its FTS row in the same transaction, and
// writes a "created" audit entry (spec §4.4 invariant: "every hierarchy
// code assignment is accompanied by an audit log entry").
func (s *Store) Create(draft NodeDraft) (*Node, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Create")
	defer timer.Stop()

	id := uuid.NewString()
	now := time.Now().UTC()

	extracted, err := json.Marshal(draft.ExtractedFields)
	if err != nil {
		return nil, curatorerrors.Wrap(curatorerrors.KindInvalidInput, err, "marshal extracted fields")
	}

	n := &Node{
		ID:                        id,
		Title:                     draft.Title,
		URL:                       draft.URL,
		SourceDomain:              draft.SourceDomain,
		Company:                   draft.Company,
		SegmentCode:               draft.SegmentCode,
		CategoryCode:              draft.CategoryCode,
		ContentTypeCode:           draft.ContentTypeCode,
		FunctionHierarchyCode:     draft.FunctionHierarchyCode,
		OrganizationHierarchyCode: draft.OrganizationHierarchyCode,
		FunctionParentID:          draft.FunctionParentID,
		OrganizationParentID:      draft.OrganizationParentID,
		ExtractedFields:           draft.ExtractedFields,
		ShortDescription:          draft.ShortDescription,
		DateAdded:                 now,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	n.Descriptor = computeDescriptor(n)

	err = s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
INSERT INTO nodes (
	id, title, url, source_domain, company, segment_code, category_code,
	content_type_code, function_hierarchy_code, organization_hierarchy_code,
	function_parent_id, organization_parent_id, extracted_fields,
	short_description, descriptor, date_added, created_at, updated_at
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			n.ID, n.Title, n.URL, n.SourceDomain, n.Company, n.SegmentCode, n.CategoryCode,
			n.ContentTypeCode, n.FunctionHierarchyCode, n.OrganizationHierarchyCode,
			nullable(n.FunctionParentID), nullable(n.OrganizationParentID), string(extracted),
			n.ShortDescription, n.Descriptor, n.DateAdded, n.CreatedAt, n.UpdatedAt)
		if err != nil {
			return mapSQLiteErr(err)
		}

		if err := upsertFTS(tx, n); err != nil {
			return err
		}

		return insertAudit(tx, AuditEntry{
			NodeID:        n.ID,
			HierarchyType: ViewFunction,
			NewCode:       n.FunctionHierarchyCode,
			ChangeType:    ChangeCreated,
			TriggeredBy:   TriggeredByImport,
			ChangedAt:     now,
		})
	})
	if err != nil {
		logging.StoreError("create node failed for url %s: %v", draft.URL, err)
		return nil, err
	}

	logging.Store("created node %s (%s)", n.ID, n.URL)
	return n, nil
}

// Get fetches a single node by id, excluding soft-deleted nodes unless
// includeDeleted is set.
func (s *Store) Get(id string, includeDeleted bool) (*Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE id = ?`
	if !includeDeleted {
		query += ` AND is_deleted = 0`
	}
	row := s.db.QueryRow(query, id)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, curatorerrors.New(curatorerrors.KindNodeNotFound, fmt.Sprintf("node %s not found", id))
	}
	if err != nil {
		return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "get node")
	}
	return n, nil
}

// GetByURL looks up a non-deleted node by its exact canonical URL, the
// duplicate check the Import Orchestrator runs before fetching (spec §4.8
// step 2: "by canonical URL; if a non-deleted node exists ... return
// cached:true and stop").
func (s *Store) GetByURL(canonicalURL string) (*Node, error) {
	row := s.db.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE url = ? AND is_deleted = 0`, canonicalURL)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "get node by url")
	}
	return n, nil
}

// Update applies a partial delta to a node, keeping the FTS shadow table in
// sync, and writes an "updated" audit entry if a hierarchy code changed.
func (s *Store) Update(id string, delta NodeDelta) (*Node, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Update")
	defer timer.Stop()

	var updated *Node
	err := s.withTx(func(tx *sql.Tx) error {
		existing, err := scanNode(tx.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE id = ? AND is_deleted = 0`, id))
		if err == sql.ErrNoRows {
			return curatorerrors.New(curatorerrors.KindNodeNotFound, fmt.Sprintf("node %s not found", id))
		}
		if err != nil {
			return curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "load node for update")
		}

		applyDelta(existing, delta)
		existing.UpdatedAt = time.Now().UTC()
		existing.Descriptor = computeDescriptor(existing)

		extracted, err := json.Marshal(existing.ExtractedFields)
		if err != nil {
			return curatorerrors.Wrap(curatorerrors.KindInvalidInput, err, "marshal extracted fields")
		}

		_, err = tx.Exec(`
UPDATE nodes SET title=?, company=?, short_description=?, phrase_description=?,
	ai_summary=?, key_concepts=?, logo_url=?, function_hierarchy_code=?,
	organization_hierarchy_code=?, function_parent_id=?, organization_parent_id=?,
	extracted_fields=?, descriptor=?, updated_at=?
WHERE id = ?`,
			existing.Title, existing.Company, existing.ShortDescription, existing.PhraseDescription,
			existing.AISummary, marshalStrings(existing.KeyConcepts), existing.LogoURL,
			existing.FunctionHierarchyCode, existing.OrganizationHierarchyCode,
			nullable(existing.FunctionParentID), nullable(existing.OrganizationParentID),
			string(extracted), existing.Descriptor, existing.UpdatedAt, id)
		if err != nil {
			return mapSQLiteErr(err)
		}

		if err := upsertFTS(tx, existing); err != nil {
			return err
		}

		if delta.FunctionHierarchyCode != nil || delta.OrganizationHierarchyCode != nil {
			triggeredBy := delta.TriggeredBy
			if triggeredBy == "" {
				triggeredBy = TriggeredByUserMove
			}
			if err := insertAudit(tx, AuditEntry{
				NodeID:        id,
				HierarchyType: ViewFunction,
				NewCode:       existing.FunctionHierarchyCode,
				ChangeType:    ChangeUpdated,
				TriggeredBy:   triggeredBy,
				ChangedAt:     existing.UpdatedAt,
			}); err != nil {
				return err
			}
		}

		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SoftDelete marks a node deleted without removing it, freeing its
// hierarchy code slots (the partial unique indexes key off is_deleted=0).
func (s *Store) SoftDelete(id string) error {
	now := time.Now().UTC()
	return s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE nodes SET is_deleted = 1, updated_at = ? WHERE id = ? AND is_deleted = 0`, now, id)
		if err != nil {
			return mapSQLiteErr(err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return curatorerrors.New(curatorerrors.KindNodeNotFound, fmt.Sprintf("node %s not found", id))
		}
		if _, err := tx.Exec(`DELETE FROM nodes_fts WHERE id = ?`, id); err != nil {
			return mapSQLiteErr(err)
		}
		return insertAudit(tx, AuditEntry{
			NodeID:        id,
			HierarchyType: ViewFunction,
			ChangeType:    ChangeDeleted,
			TriggeredBy:   TriggeredByUserMove,
			ChangedAt:     now,
		})
	})
}

func applyDelta(n *Node, d NodeDelta) {
	if d.Title != nil {
		n.Title = *d.Title
	}
	if d.Company != nil {
		n.Company = *d.Company
	}
	if d.ShortDescription != nil {
		n.ShortDescription = *d.ShortDescription
	}
	if d.PhraseDescription != nil {
		n.PhraseDescription = *d.PhraseDescription
	}
	if d.AISummary != nil {
		n.AISummary = *d.AISummary
	}
	if d.KeyConcepts != nil {
		n.KeyConcepts = d.KeyConcepts
	}
	if d.LogoURL != nil {
		n.LogoURL = *d.LogoURL
	}
	if d.FunctionHierarchyCode != nil {
		n.FunctionHierarchyCode = *d.FunctionHierarchyCode
	}
	if d.OrganizationHierarchyCode != nil {
		n.OrganizationHierarchyCode = *d.OrganizationHierarchyCode
	}
	if d.FunctionParentID != nil {
		n.FunctionParentID = *d.FunctionParentID
	}
	if d.OrganizationParentID != nil {
		n.OrganizationParentID = *d.OrganizationParentID
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// computeDescriptor rebuilds the concatenated descriptor string used for
// lexical search ranking (spec §3: "regenerated whenever any contributing
// field changes"). It is deliberately a superset of what's already
// indexed by nodes_fts — this is the denormalized column other readers
// can sort/filter on without needing an FTS query.
func computeDescriptor(n *Node) string {
	parts := []string{n.Title, n.Company, n.ShortDescription, n.PhraseDescription, n.AISummary}
	parts = append(parts, n.KeyConcepts...)
	parts = append(parts, n.MetadataTags...)
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

func marshalStrings(ss []string) string {
	b, _ := json.Marshal(ss)
	return string(b)
}

func unmarshalStrings(raw string) []string {
	var ss []string
	_ = json.Unmarshal([]byte(raw), &ss)
	return ss
}
