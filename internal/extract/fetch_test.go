package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	curatorerrors "github.com/nodecurio/curator/internal/errors"
)

func TestFetch_FollowsRedirectToPublicHost(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>ok</html>"))
	}))
	defer final.Close()

	redirecter := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusFound)
	}))
	defer redirecter.Close()

	f := NewFetcher(0, 1<<20, 2, 2)
	result, err := f.Fetch(context.Background(), redirecter.URL)
	require.NoError(t, err)
	assert.Contains(t, string(result.Body), "ok")
}

func TestFetch_RejectsRedirectToBlockedHost(t *testing.T) {
	redirecter := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://169.254.169.254/latest/meta-data", http.StatusFound)
	}))
	defer redirecter.Close()

	f := NewFetcher(0, 1<<20, 2, 2)
	_, err := f.Fetch(context.Background(), redirecter.URL)
	require.Error(t, err)

	permErr, ok := err.(*PermanentFetchError)
	require.True(t, ok, "expected *PermanentFetchError, got %T", err)
	assert.Equal(t, curatorerrors.KindSSRFBlocked, curatorerrors.KindOf(permErr.Cause))
}
