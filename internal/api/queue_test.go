package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodecurio/curator/internal/store"
)

func TestHandleQueueStatus_ReturnsStats(t *testing.T) {
	srv, s := newTestServer(t)
	n, err := s.Create(store.NodeDraft{Title: "A", URL: "https://example.com/a", FunctionHierarchyCode: "R.GHUB.A"})
	require.NoError(t, err)
	_, err = s.Enqueue(n.ID, store.PhaseEnrichment, 0, 3)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/queue/status", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Pending":1`)
}

func TestHandleQueueRetry_NotFoundWhenJobNeverFailed(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/queue/retry/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleQueueJobForNode_ListsEnqueuedJob(t *testing.T) {
	srv, s := newTestServer(t)
	n, err := s.Create(store.NodeDraft{Title: "A", URL: "https://example.com/a", FunctionHierarchyCode: "R.GHUB.A"})
	require.NoError(t, err)
	_, err = s.Enqueue(n.ID, store.PhaseEnrichment, 0, 3)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/queue/jobs/"+n.ID, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), n.ID)
}
