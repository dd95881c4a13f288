package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleImport_InvalidURLReturnsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(`{"url":"ftp://example.com"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "URL_INVALID_PROTOCOL")
}

func TestHandleImport_MalformedBodyReturnsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleBatchImport_RejectsOverMaxBatchSize(t *testing.T) {
	srv, _ := newTestServer(t)

	urls := make([]string, maxBatchSize+1)
	for i := range urls {
		urls[i] = `"https://example.com"`
	}
	body := `{"urls":[` + strings.Join(urls, ",") + `]}`

	req := httptest.NewRequest(http.MethodPost, "/api/batch-import", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleBatchStatus_NotFoundForUnknownBatch(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/batch-import/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
