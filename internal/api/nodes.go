package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nodecurio/curator/internal/store"
)

// handleListNodes serves GET /api/nodes: a paginated, filterable listing
// (spec §4.4/§6).
func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	f := filterFromQuery(r)
	page := intQueryParam(r, "page", 1)
	limit := intQueryParam(r, "limit", 20)

	result, err := s.store.ListPaginated(f, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	id := chiParam(r, "id")
	n, err := s.store.Get(id, false)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

type nodeUpdateRequest struct {
	Title                     *string  `json:"title"`
	Company                   *string  `json:"company"`
	ShortDescription          *string  `json:"shortDescription"`
	PhraseDescription         *string  `json:"phraseDescription"`
	AISummary                 *string  `json:"aiSummary"`
	KeyConcepts               []string `json:"keyConcepts"`
	LogoURL                   *string  `json:"logoUrl"`
	FunctionHierarchyCode     *string  `json:"functionHierarchyCode"`
	OrganizationHierarchyCode *string  `json:"organizationHierarchyCode"`
	FunctionParentID          *string  `json:"functionParentId"`
	OrganizationParentID      *string  `json:"organizationParentId"`
}

func (req nodeUpdateRequest) delta() store.NodeDelta {
	return store.NodeDelta{
		Title:                     req.Title,
		Company:                   req.Company,
		ShortDescription:          req.ShortDescription,
		PhraseDescription:         req.PhraseDescription,
		AISummary:                 req.AISummary,
		KeyConcepts:               req.KeyConcepts,
		LogoURL:                   req.LogoURL,
		FunctionHierarchyCode:     req.FunctionHierarchyCode,
		OrganizationHierarchyCode: req.OrganizationHierarchyCode,
		FunctionParentID:          req.FunctionParentID,
		OrganizationParentID:      req.OrganizationParentID,
	}
}

// handleUpdateNode serves PUT /api/nodes/:id. A hierarchy code edit
// invalidates the hierarchy cache the same way a restructure does (spec
// §4.11: "any create/update/delete invalidates").
func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	var req nodeUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badRequest("invalid JSON body"))
		return
	}

	id := chiParam(r, "id")
	n, err := s.store.Update(id, req.delta())
	if err != nil {
		writeError(w, err)
		return
	}

	if req.FunctionHierarchyCode != nil || req.OrganizationHierarchyCode != nil {
		s.invalidateHierarchyCache()
	}

	writeJSON(w, http.StatusOK, n)
}

// handleDeleteNode serves DELETE /api/nodes/:id, soft-deleting the node
// (spec §3: "freeing its hierarchy code slots").
func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	id := chiParam(r, "id")
	if err := s.store.SoftDelete(id); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateHierarchyCache()
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) invalidateHierarchyCache() {
	if s.hcache != nil {
		s.hcache.InvalidateAll()
	}
}

func filterFromQuery(r *http.Request) store.Filter {
	q := r.URL.Query()
	f := store.Filter{
		Segment:      q.Get("segment"),
		Category:     q.Get("category"),
		ContentType:  q.Get("contentType"),
		Organization: q.Get("organization"),
		HasMetadata:  q.Get("hasMetadata") == "true",
	}
	if from := q.Get("dateFrom"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			f.DateFrom = &t
		}
	}
	if to := q.Get("dateTo"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			f.DateTo = &t
		}
	}
	return f
}
