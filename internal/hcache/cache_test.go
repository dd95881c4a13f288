package hcache

import (
	"testing"
	"time"

	"github.com/nodecurio/curator/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCompute_CachesAfterFirstMiss(t *testing.T) {
	c, err := New(time.Minute)
	require.NoError(t, err)
	defer c.Close()

	calls := 0
	compute := func() (*store.Node, error) {
		calls++
		return &store.Node{ID: "n1", FunctionHierarchyCode: "A.LLM.T.1"}, nil
	}

	n1, err := c.GetNodeByHierarchyCode(store.ViewFunction, "A.LLM.T.1", compute)
	require.NoError(t, err)
	assert.Equal(t, "n1", n1.ID)

	n2, err := c.GetNodeByHierarchyCode(store.ViewFunction, "A.LLM.T.1", compute)
	require.NoError(t, err)
	assert.Equal(t, "n1", n2.ID)
	assert.Equal(t, 1, calls, "second call should hit cache, not recompute")
}

func TestGetTree_MemoizesCompute(t *testing.T) {
	c, err := New(time.Minute)
	require.NoError(t, err)
	defer c.Close()

	calls := 0
	compute := func() ([]store.Node, error) {
		calls++
		return []store.Node{{ID: "n1"}, {ID: "n2"}}, nil
	}

	tree, err := c.GetTree(store.ViewFunction, compute)
	require.NoError(t, err)
	assert.Len(t, tree, 2)

	_, err = c.GetTree(store.ViewFunction, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second call should hit cache, not recompute")
}

func TestInvalidatePrefixes_DropsAncestorEntries(t *testing.T) {
	c, err := New(time.Minute)
	require.NoError(t, err)
	defer c.Close()

	calls := 0
	compute := func() ([]store.Node, error) {
		calls++
		return []store.Node{{ID: "n1"}}, nil
	}

	_, err = c.GetSubtree(store.ViewFunction, "A.LLM", compute)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	c.InvalidatePrefixes(store.ViewFunction, "A.LLM.T.2")

	_, err = c.GetSubtree(store.ViewFunction, "A.LLM", compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "ancestor cache entry should have been invalidated")
}

func TestInvalidatePrefixes_LeavesUnrelatedEntries(t *testing.T) {
	c, err := New(time.Minute)
	require.NoError(t, err)
	defer c.Close()

	calls := 0
	compute := func() ([]store.Node, error) {
		calls++
		return []store.Node{{ID: "n1"}}, nil
	}

	_, err = c.GetSubtree(store.ViewFunction, "B.FND", compute)
	require.NoError(t, err)

	c.InvalidatePrefixes(store.ViewFunction, "A.LLM.T.2")

	_, err = c.GetSubtree(store.ViewFunction, "B.FND", compute)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "unrelated prefix must not be invalidated")
}

func TestInvalidateAll_ClearsEverything(t *testing.T) {
	c, err := New(time.Minute)
	require.NoError(t, err)
	defer c.Close()

	calls := 0
	compute := func() (*store.Node, error) {
		calls++
		return &store.Node{ID: "n1"}, nil
	}

	_, err = c.GetNodeByHierarchyCode(store.ViewFunction, "A.LLM.T.1", compute)
	require.NoError(t, err)

	c.InvalidateAll()

	_, err = c.GetNodeByHierarchyCode(store.ViewFunction, "A.LLM.T.1", compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestComputeError_IsNotCached(t *testing.T) {
	c, err := New(time.Minute)
	require.NoError(t, err)
	defer c.Close()

	calls := 0
	compute := func() (*store.Node, error) {
		calls++
		return nil, assertionError("boom")
	}

	_, err = c.GetNodeByHierarchyCode(store.ViewFunction, "X.Y.Z", compute)
	require.Error(t, err)

	_, err = c.GetNodeByHierarchyCode(store.ViewFunction, "X.Y.Z", compute)
	require.Error(t, err)
	assert.Equal(t, 2, calls, "errors must not be cached")
}

type assertionError string

func (e assertionError) Error() string { return string(e) }
