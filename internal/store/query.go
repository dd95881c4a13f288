package store

import (
	"fmt"
	"strings"

	curatorerrors "github.com/nodecurio/curator/internal/errors"
	"github.com/nodecurio/curator/internal/logging"
)

// clampPage normalizes page/limit per spec §6's pagination contract:
// page >= 1 (default 1), limit clamped to [1,100] (default 20).
func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func buildFilterClause(f Filter, args *[]any) string {
	var clauses []string
	if f.Segment != "" {
		clauses = append(clauses, "n.segment_code = ?")
		*args = append(*args, f.Segment)
	}
	if f.Category != "" {
		clauses = append(clauses, "n.category_code = ?")
		*args = append(*args, f.Category)
	}
	if f.ContentType != "" {
		clauses = append(clauses, "n.content_type_code = ?")
		*args = append(*args, f.ContentType)
	}
	if f.Organization != "" {
		clauses = append(clauses, "n.company = ?")
		*args = append(*args, f.Organization)
	}
	if f.DateFrom != nil {
		clauses = append(clauses, "n.date_added >= ?")
		*args = append(*args, *f.DateFrom)
	}
	if f.DateTo != nil {
		clauses = append(clauses, "n.date_added <= ?")
		*args = append(*args, *f.DateTo)
	}
	if f.HasMetadata {
		clauses = append(clauses, `EXISTS (
			SELECT 1 FROM node_metadata nm
			WHERE nm.node_id = n.id AND nm.confidence >= `+fmt.Sprintf("%f", MetadataConfidenceThreshold)+`
		)`)
	}
	if len(clauses) == 0 {
		return ""
	}
	return " AND " + strings.Join(clauses, " AND ")
}

// ListPaginated returns a page of non-deleted nodes matching filter,
// ordered by date_added descending (spec §4.4/§6).
func (s *Store) ListPaginated(f Filter, page, limit int) (*Page, error) {
	page, limit = clampPage(page, limit)
	offset := (page - 1) * limit

	var args []any
	where := "n.is_deleted = 0" + buildFilterClause(f, &args)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM nodes n WHERE %s`, where)
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "count nodes")
	}

	listArgs := append(append([]any{}, args...), limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM nodes n WHERE %s ORDER BY n.date_added DESC LIMIT ? OFFSET ?`,
		columnsWithAlias("n"), where)
	rows, err := s.db.Query(query, listArgs...)
	if err != nil {
		return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "list nodes")
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "scan node row")
		}
		nodes = append(nodes, *n)
	}

	return buildPage(nodes, page, limit, total), nil
}

// KeywordSearch runs an FTS5 match against title/description/summary/
// company/domain/key-concepts, joined back to nodes for filtering, and
// computes facet counts over the unfiltered-by-facet result set (spec §6).
func (s *Store) KeywordSearch(query string, f Filter, page, limit int) (*SearchResult, error) {
	timer := logging.StartTimer(logging.CategoryStore, "KeywordSearch")
	defer timer.Stop()

	page, limit = clampPage(page, limit)
	offset := (page - 1) * limit

	var args []any
	args = append(args, query)
	where := "n.is_deleted = 0" + buildFilterClause(f, &args)

	var total int
	countQuery := fmt.Sprintf(`
SELECT COUNT(*) FROM nodes n
JOIN nodes_fts fts ON fts.id = n.id
WHERE fts.nodes_fts MATCH ? AND %s`, where)
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "count search results")
	}

	listArgs := append(append([]any{}, args...), limit, offset)
	listQuery := fmt.Sprintf(`
SELECT %s FROM nodes n
JOIN nodes_fts fts ON fts.id = n.id
WHERE fts.nodes_fts MATCH ? AND %s
ORDER BY bm25(nodes_fts) LIMIT ? OFFSET ?`, columnsWithAlias("n"), where)
	rows, err := s.db.Query(listQuery, listArgs...)
	if err != nil {
		return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "search nodes")
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "scan search row")
		}
		nodes = append(nodes, *n)
	}

	facets, err := s.computeFacets(query, f)
	if err != nil {
		return nil, err
	}

	return &SearchResult{Page: *buildPage(nodes, page, limit, total), Facets: *facets}, nil
}

func (s *Store) computeFacets(query string, f Filter) (*Facets, error) {
	var args []any
	args = append(args, query)
	where := "n.is_deleted = 0" + buildFilterClause(f, &args)

	facets := &Facets{
		Segments:     map[string]int{},
		Categories:   map[string]int{},
		ContentTypes: map[string]int{},
		TopOrgs:      map[string]int{},
	}

	specs := []struct {
		column string
		target map[string]int
	}{
		{"n.segment_code", facets.Segments},
		{"n.category_code", facets.Categories},
		{"n.content_type_code", facets.ContentTypes},
	}
	for _, sp := range specs {
		q := fmt.Sprintf(`
SELECT %s, COUNT(*) FROM nodes n JOIN nodes_fts fts ON fts.id = n.id
WHERE fts.nodes_fts MATCH ? AND %s GROUP BY %s`, sp.column, where, sp.column)
		rows, err := s.db.Query(q, args...)
		if err != nil {
			return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "facet query")
		}
		for rows.Next() {
			var code string
			var count int
			if err := rows.Scan(&code, &count); err != nil {
				rows.Close()
				return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "scan facet row")
			}
			if code != "" {
				sp.target[code] = count
			}
		}
		rows.Close()
	}

	orgQuery := fmt.Sprintf(`
SELECT n.company, COUNT(*) FROM nodes n JOIN nodes_fts fts ON fts.id = n.id
WHERE fts.nodes_fts MATCH ? AND %s AND n.company != '' GROUP BY n.company ORDER BY COUNT(*) DESC LIMIT 10`, where)
	rows, err := s.db.Query(orgQuery, args...)
	if err != nil {
		return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "org facet query")
	}
	defer rows.Close()
	for rows.Next() {
		var company string
		var count int
		if err := rows.Scan(&company, &count); err != nil {
			return nil, curatorerrors.Wrap(curatorerrors.KindDatabaseQueryError, err, "scan org facet row")
		}
		facets.TopOrgs[company] = count
	}

	return facets, nil
}

func buildPage(nodes []Node, page, limit, total int) *Page {
	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}
	return &Page{
		Data:       nodes,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    page*limit < total,
	}
}

func columnsWithAlias(alias string) string {
	cols := strings.Split(strings.ReplaceAll(strings.TrimSpace(nodeColumns), "\n", ""), ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
