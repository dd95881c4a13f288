package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodecurio/curator/internal/classify"
	"github.com/nodecurio/curator/internal/config"
	curatorerrors "github.com/nodecurio/curator/internal/errors"
	"github.com/nodecurio/curator/internal/extract"
	"github.com/nodecurio/curator/internal/hierarchy"
	"github.com/nodecurio/curator/internal/llmclient"
	"github.com/nodecurio/curator/internal/queue"
	"github.com/nodecurio/curator/internal/store"
)

// newTestOrchestrator wires a real store, a real (no-API-key) LLM client and
// real hierarchy engines/queue, exactly like internal/enrich's test helper.
// internal/classify's Classify call falls back to URL-pattern matching
// without any network access, but internal/extract's Fetcher does real
// HTTP, so tests here only exercise the paths that stop before fetching —
// validation failures and the duplicate-check short-circuit.
func newTestOrchestrator(t *testing.T) (*Orchestrator, *store.Store) {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	llm, err := llmclient.New(config.LLMConfig{Model: "gemini-2.0-flash"})
	require.NoError(t, err)

	function := hierarchy.NewEngine(s, nil)
	organization := hierarchy.NewEngine(s, nil)
	q := queue.New(s, config.QueueConfig{WorkerPoolSize: 1, DefaultMaxAttempts: 1, BackoffBase: "10ms", BackoffCeiling: "100ms", VisibilityTimeout: "1m"}, nil)

	o := New(s, extract.NewFetcher(0, 0, 1, 1), extract.NewRegistry(), classify.New(llm, 0), function, organization, q)
	return o, s
}

func TestImport_InvalidURLFailsAtValidating(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	_, err := o.Import(context.Background(), "ftp://example.com/x", DefaultOptions())
	require.Error(t, err)
	assert.Equal(t, curatorerrors.KindURLInvalidProtocol, curatorerrors.KindOf(err))
}

func TestImport_EmptyURLFailsAtValidating(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	_, err := o.Import(context.Background(), "   ", DefaultOptions())
	require.Error(t, err)
	assert.Equal(t, curatorerrors.KindURLEmpty, curatorerrors.KindOf(err))
}

func TestImport_DuplicateWithoutForceRefreshReturnsCached(t *testing.T) {
	o, s := newTestOrchestrator(t)
	n, err := s.Create(store.NodeDraft{
		Title: "dup", URL: "https://example.com/dup",
		FunctionHierarchyCode: "T.OTH.A", OrganizationHierarchyCode: "UNKN.OTH.A",
	})
	require.NoError(t, err)

	result, err := o.Import(context.Background(), "https://example.com/dup", Options{ForceRefresh: false})
	require.NoError(t, err)
	assert.True(t, result.Cached)
	assert.Equal(t, n.ID, result.NodeID)
	assert.Equal(t, "T.OTH.A", result.HierarchyCodes.Function)
	assert.False(t, result.Phase2Queued)
}

func TestClassificationMetadata_OmitsEmptyAndUnknownOrganization(t *testing.T) {
	c := classify.Classification{Segment: "T", Category: "DEV", ContentType: "A", Organization: classify.DefaultOrganization, Confidence: 0.8}
	codes := classificationMetadata(c)
	assert.Len(t, codes, 3)
	for _, code := range codes {
		assert.NotEqual(t, "ORG", code.Type)
	}
}

func TestClassificationMetadata_IncludesKnownOrganization(t *testing.T) {
	c := classify.Classification{Segment: "A", Category: "LLM", ContentType: "A", Organization: "OAIA", Confidence: 0.9}
	codes := classificationMetadata(c)
	assert.Len(t, codes, 4)
	found := false
	for _, code := range codes {
		if code.Type == "ORG" {
			found = true
			assert.Equal(t, "OAIA", code.Code)
		}
	}
	assert.True(t, found)
}

func TestMapFetchErr_SizeExceeded(t *testing.T) {
	err := mapFetchErr(&extract.SizeExceeded{Limit: 1024})
	assert.Equal(t, curatorerrors.KindContentTooLarge, curatorerrors.KindOf(err))
}

func TestMapFetchErr_UpstreamRateLimited(t *testing.T) {
	err := mapFetchErr(&extract.UpstreamRateLimited{RetryAfterSeconds: 30})
	assert.Equal(t, curatorerrors.KindRateLimitExceeded, curatorerrors.KindOf(err))
}

func TestMapFetchErr_TransientWrapsAsFetchFailed(t *testing.T) {
	err := mapFetchErr(&extract.TransientFetchError{Cause: errors.New("connection reset")})
	assert.Equal(t, curatorerrors.KindFetchFailed, curatorerrors.KindOf(err))
}

func TestMapExtractErr_ParseError(t *testing.T) {
	err := mapExtractErr(&extract.ParseError{Cause: errors.New("bad markup")})
	assert.Equal(t, curatorerrors.KindScrapeInvalidContent, curatorerrors.KindOf(err))
}
