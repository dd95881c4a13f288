package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nodecurio/curator/internal/classify"
	"github.com/nodecurio/curator/internal/config"
	"github.com/nodecurio/curator/internal/extract"
	"github.com/nodecurio/curator/internal/hcache"
	"github.com/nodecurio/curator/internal/hierarchy"
	"github.com/nodecurio/curator/internal/llmclient"
	"github.com/nodecurio/curator/internal/notify"
	"github.com/nodecurio/curator/internal/orchestrator"
	"github.com/nodecurio/curator/internal/queue"
	"github.com/nodecurio/curator/internal/store"
)

// newTestServer wires a full in-process stack the same way
// internal/orchestrator's tests do: a real store, real (no-network)
// hierarchy engines and a no-API-key LLM client, so handlers that never
// reach the network are safe to exercise end to end.
func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	llm, err := llmclient.New(config.LLMConfig{Model: "gemini-2.0-flash"})
	require.NoError(t, err)

	function := hierarchy.NewEngine(s, nil)
	organization := hierarchy.NewEngine(s, nil)
	bus := notify.New()
	q := queue.New(s, config.QueueConfig{WorkerPoolSize: 1, DefaultMaxAttempts: 1, BackoffBase: "10ms", BackoffCeiling: "100ms", VisibilityTimeout: "1m"}, bus)

	o := orchestrator.New(s, extract.NewFetcher(0, 0, 1, 1), extract.NewRegistry(), classify.New(llm, 0), function, organization, q)

	hc, err := hcache.New(time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { hc.Close() })

	srv := New(s, o, q, hc, bus, nil, "test")
	return srv, s
}
