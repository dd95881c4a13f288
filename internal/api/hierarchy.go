package api

import (
	"net/http"

	"github.com/nodecurio/curator/internal/store"
)

func parseView(raw string) (store.View, error) {
	switch raw {
	case string(store.ViewFunction):
		return store.ViewFunction, nil
	case string(store.ViewOrganization):
		return store.ViewOrganization, nil
	default:
		return "", badRequest("view must be 'function' or 'organization'")
	}
}

// handleHierarchyTree serves GET /api/hierarchy/:view, reading through the
// Hierarchy Cache when one is configured (spec §4.9/§4.11).
func (s *Server) handleHierarchyTree(w http.ResponseWriter, r *http.Request) {
	view, err := parseView(chiParam(r, "view"))
	if err != nil {
		writeError(w, err)
		return
	}

	nodes, err := s.getTree(view)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) getTree(view store.View) ([]store.Node, error) {
	if s.hcache == nil {
		return s.store.GetTree(view)
	}
	return s.hcache.GetTree(view, func() ([]store.Node, error) { return s.store.GetTree(view) })
}

// handleHierarchySubtree serves GET /api/hierarchy/subtree/:view/:path.
func (s *Server) handleHierarchySubtree(w http.ResponseWriter, r *http.Request) {
	view, err := parseView(chiParam(r, "view"))
	if err != nil {
		writeError(w, err)
		return
	}
	path := chiParam(r, "path")

	var nodes []store.Node
	if s.hcache == nil {
		nodes, err = s.store.GetSubtree(view, path)
	} else {
		nodes, err = s.hcache.GetSubtree(view, path, func() ([]store.Node, error) { return s.store.GetSubtree(view, path) })
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

// handleHierarchyAncestry serves GET /api/hierarchy/path/:view/:nodeId.
func (s *Server) handleHierarchyAncestry(w http.ResponseWriter, r *http.Request) {
	view, err := parseView(chiParam(r, "view"))
	if err != nil {
		writeError(w, err)
		return
	}
	nodeID := chiParam(r, "nodeId")

	var nodes []store.Node
	if s.hcache == nil {
		nodes, err = s.store.GetAncestry(view, nodeID)
	} else {
		nodes, err = s.hcache.GetAncestry(view, nodeID, func() ([]store.Node, error) { return s.store.GetAncestry(view, nodeID) })
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

// handleHierarchyInvalidate serves POST /api/hierarchy/invalidate, an
// operator escape hatch to drop the whole cache without waiting for the
// next mutation (spec §4.11).
func (s *Server) handleHierarchyInvalidate(w http.ResponseWriter, r *http.Request) {
	s.invalidateHierarchyCache()
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}
