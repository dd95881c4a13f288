package api

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nodecurio/curator/internal/orchestrator"
)

// BatchStatus is a batch-import job's lifecycle state.
type BatchStatus string

const (
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchCancelled BatchStatus = "cancelling"
)

// batchResult is one URL's outcome within a batch.
type batchResult struct {
	URL     string `json:"url"`
	Success bool   `json:"success"`
	NodeID  string `json:"nodeId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// batch tracks one POST /api/batch-import call's progress in memory. The
// service has no durable batch table (spec §6 describes batch-import as a
// thin fan-out over the Import Orchestrator, not a new persisted entity),
// so results live only as long as the process does.
type batch struct {
	ID        string
	mu        sync.Mutex
	total     int
	results   []batchResult
	cancelled bool
	startedAt time.Time
}

type batchSnapshot struct {
	ID        string        `json:"id"`
	Status    BatchStatus   `json:"status"`
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	Results   []batchResult `json:"results"`
}

func (b *batch) snapshot() batchSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	status := BatchRunning
	if b.cancelled {
		status = BatchCancelled
	}
	if len(b.results) >= b.total {
		status = BatchCompleted
	}
	results := make([]batchResult, len(b.results))
	copy(results, b.results)
	return batchSnapshot{ID: b.ID, Status: status, Total: b.total, Completed: len(results), Results: results}
}

func (b *batch) isCancelled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancelled
}

// batchTracker holds every batch started this process's lifetime, keyed by
// ID — an in-memory registry, the same shape internal/ratelimit.Manager
// uses for its per-client buckets.
type batchTracker struct {
	mu      sync.Mutex
	batches map[string]*batch
}

func newBatchTracker() *batchTracker {
	return &batchTracker{batches: make(map[string]*batch)}
}

func (t *batchTracker) start(urls []string) *batch {
	b := &batch{ID: uuid.NewString(), total: len(urls), startedAt: time.Now()}
	t.mu.Lock()
	t.batches[b.ID] = b
	t.mu.Unlock()
	return b
}

func (t *batchTracker) get(id string) (*batch, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.batches[id]
	return b, ok
}

func (t *batchTracker) cancel(id string) bool {
	t.mu.Lock()
	b, ok := t.batches[id]
	t.mu.Unlock()
	if !ok {
		return false
	}
	b.mu.Lock()
	b.cancelled = true
	b.mu.Unlock()
	return true
}

func (t *batchTracker) record(batchID, url string, result *orchestrator.Result, err error) {
	b, ok := t.get(batchID)
	if !ok {
		return
	}
	r := batchResult{URL: url}
	if err != nil {
		r.Error = err.Error()
	} else {
		r.Success = true
		r.NodeID = result.NodeID
	}
	b.mu.Lock()
	b.results = append(b.results, r)
	b.mu.Unlock()
}
