package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodecurio/curator/internal/store"
)

func TestHandleSearch_RequiresQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearch_FindsMatchingNode(t *testing.T) {
	srv, s := newTestServer(t)
	_, err := s.Create(store.NodeDraft{
		URL: "https://example.com/golang", Title: "Go concurrency patterns",
		SegmentCode: "R", CategoryCode: "GHUB", ContentTypeCode: "A",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=concurrency", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Go concurrency patterns")
}

func TestHandleSearchAdvanced_BrowsesByFilterWithoutQuery(t *testing.T) {
	srv, s := newTestServer(t)
	_, err := s.Create(store.NodeDraft{URL: "https://example.com/a", Title: "Anything", SegmentCode: "R"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/search/advanced?segment=R", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
