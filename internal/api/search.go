package api

import (
	"net/http"
)

// handleSearch serves GET /api/search: keyword FTS5 search plus facets
// (spec §4.4/§6).
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, badRequest("q is required"))
		return
	}

	f := filterFromQuery(r)
	page := intQueryParam(r, "page", 1)
	limit := intQueryParam(r, "limit", 20)

	result, err := s.store.KeywordSearch(query, f, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSearchAdvanced serves GET /api/search/advanced: the same filter
// set as /api/nodes, plus an optional free-text "q". With no "q", this is
// a pure facet/filter browse with no FTS5 MATCH clause to satisfy, since an
// empty or wildcard MATCH string is a syntax error in FTS5.
func (s *Server) handleSearchAdvanced(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	f := filterFromQuery(r)
	page := intQueryParam(r, "page", 1)
	limit := intQueryParam(r, "limit", 20)

	if query == "" {
		result, err := s.store.ListPaginated(f, page, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	result, err := s.store.KeywordSearch(query, f, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
