package llmclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodecurio/curator/internal/config"
	curatorerrors "github.com/nodecurio/curator/internal/errors"
)

func TestNew_NoAPIKey_SurfacesNotInitialized(t *testing.T) {
	cfg := config.LLMConfig{Model: "gemini-2.0-flash"}
	c, err := New(cfg)
	require.NoError(t, err)

	_, err = c.GenerateJSON(context.Background(), "classify", "sys", "user", nil)
	require.Error(t, err)
	assert.Equal(t, curatorerrors.KindLLMNotInitialized, curatorerrors.KindOf(err))
}

func TestUsageTracker_RecordsByModelAndOperation(t *testing.T) {
	tr := NewUsageTracker()
	tr.Record("classify", "gemini-2.0-flash", TokenCounts{Input: 10, Output: 5, Total: 15})
	tr.Record("classify", "gemini-2.0-flash", TokenCounts{Input: 1, Output: 1, Total: 2})

	stats := tr.Snapshot()
	assert.Equal(t, 11, stats.ByModel["gemini-2.0-flash"].Input)
	assert.Equal(t, 17, stats.ByOperation["classify"].Total)
}
