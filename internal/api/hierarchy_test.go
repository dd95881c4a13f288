package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodecurio/curator/internal/store"
)

func TestHandleHierarchyTree_ReturnsAllNodesInView(t *testing.T) {
	srv, s := newTestServer(t)
	_, err := s.Create(store.NodeDraft{
		Title: "A", URL: "https://example.com/a",
		FunctionHierarchyCode: "R.GHUB.A",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/hierarchy/function", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "R.GHUB.A")
}

func TestHandleHierarchyTree_RejectsUnknownView(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/hierarchy/bogus", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHierarchyInvalidate_ClearsCache(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/hierarchy/invalidate", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
