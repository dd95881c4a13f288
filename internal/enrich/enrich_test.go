package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodecurio/curator/internal/config"
	curatorerrors "github.com/nodecurio/curator/internal/errors"
	"github.com/nodecurio/curator/internal/llmclient"
	"github.com/nodecurio/curator/internal/store"
)

func newTestEnricher(t *testing.T) (*Enricher, *store.Store) {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	llm, err := llmclient.New(config.LLMConfig{Model: "gemini-2.0-flash"})
	require.NoError(t, err)

	return New(llm, s, nil, nil, nil), s
}

func TestHandle_NodeNotFoundSurfacesNodeNotFound(t *testing.T) {
	e, _ := newTestEnricher(t)
	err := e.Handle(context.Background(), store.Job{NodeID: "missing"})
	require.Error(t, err)
	assert.Equal(t, curatorerrors.KindNodeNotFound, curatorerrors.KindOf(err))
}

func TestHandle_NoLLMConfiguredSurfacesNotInitialized(t *testing.T) {
	e, s := newTestEnricher(t)
	n, err := s.Create(store.NodeDraft{
		Title: "x", URL: "https://example.com/x",
		FunctionHierarchyCode: "A.LLM.T.1", OrganizationHierarchyCode: "OAIA.LLM.T.1",
	})
	require.NoError(t, err)

	err = e.Handle(context.Background(), store.Job{NodeID: n.ID})
	require.Error(t, err)
	assert.Equal(t, curatorerrors.KindLLMNotInitialized, curatorerrors.KindOf(err))
}

func TestRegenerateHierarchyCodes_NilEnginesIsANoOp(t *testing.T) {
	e, _ := newTestEnricher(t)
	n := &store.Node{ID: "n1", FunctionHierarchyCode: "A.LLM.T.1", OrganizationHierarchyCode: "OAIA.LLM.T.1"}

	moved, err := e.regenerateHierarchyCodes(n)
	require.NoError(t, err)
	assert.False(t, moved)
}
