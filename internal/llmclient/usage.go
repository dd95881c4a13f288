package llmclient

import "sync"

// TokenCounts mirrors the teacher's internal/usage TokenCounts shape
// (Input/Output/Total), scoped here to one LLM call.
type TokenCounts struct {
	Input  int
	Output int
	Total  int
}

// Stats is a snapshot of running totals, keyed the way the teacher's usage
// tracker keys by provider/model — this service only has one provider, so
// the provider dimension is dropped and model/operation are kept.
type Stats struct {
	ByModel     map[string]TokenCounts
	ByOperation map[string]TokenCounts
}

// UsageTracker accumulates token usage in memory, keyed by model and by
// operation (classify|enrich). Unlike the teacher's usage.Tracker, this is
// not persisted to a workspace-scoped JSON file — there is no per-session
// workspace concept in this service, so a process-lifetime in-memory
// accumulator is the closest equivalent (see DESIGN.md).
type UsageTracker struct {
	mu          sync.Mutex
	byModel     map[string]TokenCounts
	byOperation map[string]TokenCounts
}

func NewUsageTracker() *UsageTracker {
	return &UsageTracker{
		byModel:     make(map[string]TokenCounts),
		byOperation: make(map[string]TokenCounts),
	}
}

func (t *UsageTracker) Record(operation, model string, usage TokenCounts) {
	t.mu.Lock()
	defer t.mu.Unlock()
	addTo(t.byModel, model, usage)
	addTo(t.byOperation, operation, usage)
}

func (t *UsageTracker) Snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		ByModel:     copyCounts(t.byModel),
		ByOperation: copyCounts(t.byOperation),
	}
}

func addTo(m map[string]TokenCounts, key string, usage TokenCounts) {
	c := m[key]
	c.Input += usage.Input
	c.Output += usage.Output
	c.Total += usage.Total
	m[key] = c
}

func copyCounts(m map[string]TokenCounts) map[string]TokenCounts {
	out := make(map[string]TokenCounts, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
