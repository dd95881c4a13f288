package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodecurio/curator/internal/store"
)

func TestHandleListNodes_ReturnsPage(t *testing.T) {
	srv, s := newTestServer(t)
	_, err := s.Create(store.NodeDraft{
		Title: "Example", URL: "https://example.com/a",
		SegmentCode: "R", CategoryCode: "GHUB", ContentTypeCode: "A",
		FunctionHierarchyCode: "R.GHUB.A",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/nodes", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Example")
}

func TestHandleGetNode_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/nodes/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NODE_NOT_FOUND")
}

func TestHandleUpdateNode_AppliesDelta(t *testing.T) {
	srv, s := newTestServer(t)
	n, err := s.Create(store.NodeDraft{
		Title: "Before", URL: "https://example.com/b",
		FunctionHierarchyCode: "R.GHUB.A",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/nodes/"+n.ID, strings.NewReader(`{"title":"After"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "After")
}

func TestHandleDeleteNode_SoftDeletesAndIsUnreachable(t *testing.T) {
	srv, s := newTestServer(t)
	n, err := s.Create(store.NodeDraft{
		Title: "Gone", URL: "https://example.com/c",
		FunctionHierarchyCode: "R.GHUB.A",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/nodes/"+n.ID, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err = s.Get(n.ID, false)
	assert.Error(t, err)
}
