// Package queue implements the durable Processing Queue (C8): Phase-2
// enrichment jobs are enqueued against internal/store's processing_queue
// table and claimed by a bounded worker pool, with exponential-backoff
// retry, a reaper for orphaned in-flight jobs, and a janitor that clears
// old completed/cancelled rows (spec §4.6).
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/nodecurio/curator/internal/config"
	curatorerrors "github.com/nodecurio/curator/internal/errors"
	"github.com/nodecurio/curator/internal/logging"
	"github.com/nodecurio/curator/internal/notify"
	"github.com/nodecurio/curator/internal/store"
)

// Handler processes one claimed job. A returned error is classified via
// curatorerrors to decide whether the job retries or fails permanently.
type Handler func(ctx context.Context, job store.Job) error

type Queue struct {
	store   *store.Store
	backoff *jitteredBackoff
	bus     *notify.Bus

	defaultMaxAttempts int
	visibilityTimeout  time.Duration
	reaperInterval     time.Duration
	janitorRetention   time.Duration
	janitorInterval    time.Duration
	poolSize           int
}

// New constructs a Queue. bus may be nil — a queue with no notification bus
// simply never emits queue_status, which is how package-local tests
// exercise claim/complete/fail without standing up a bus.
func New(s *store.Store, cfg config.QueueConfig, bus *notify.Bus) *Queue {
	base := parseDurationOrDefault(cfg.BackoffBase, time.Second)
	ceiling := parseDurationOrDefault(cfg.BackoffCeiling, 5*time.Minute)
	maxAttempts := cfg.DefaultMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 5
	}
	poolSize := cfg.WorkerPoolSize
	if poolSize < 1 {
		poolSize = 3
	}
	return &Queue{
		store:              s,
		backoff:            newJitteredBackoff(base, ceiling),
		bus:                bus,
		defaultMaxAttempts: maxAttempts,
		visibilityTimeout:  parseDurationOrDefault(cfg.VisibilityTimeout, 10*time.Minute),
		reaperInterval:     parseDurationOrDefault(cfg.ReaperInterval, time.Minute),
		janitorRetention:   parseDurationOrDefault(cfg.JanitorRetention, 168*time.Hour),
		janitorInterval:    parseDurationOrDefault(cfg.JanitorInterval, 15*time.Minute),
		poolSize:           poolSize,
	}
}

// Enqueue queues a job at the default priority and attempt budget.
func (q *Queue) Enqueue(nodeID, phase string) (*store.Job, error) {
	return q.store.Enqueue(nodeID, phase, 0, q.defaultMaxAttempts)
}

// EnqueuePriority queues a job with an explicit priority (higher claims first).
func (q *Queue) EnqueuePriority(nodeID, phase string, priority int) (*store.Job, error) {
	return q.store.Enqueue(nodeID, phase, priority, q.defaultMaxAttempts)
}

func (q *Queue) Cancel(jobID string) error              { return q.store.Cancel(jobID) }
func (q *Queue) Retry(jobID string) error                { return q.store.Retry(jobID) }
func (q *Queue) GetJob(jobID string) (*store.Job, error)  { return q.store.GetJob(jobID) }
func (q *Queue) GetJobsForNode(nodeID string) ([]store.Job, error) {
	return q.store.GetJobsForNode(nodeID)
}
func (q *Queue) ListJobs(status store.JobStatus, limit int) ([]store.Job, error) {
	return q.store.ListJobs(status, limit)
}
func (q *Queue) Stats() (*store.JobStats, error) { return q.store.QueueStats() }

// handleClaim processes one job end-to-end and persists the outcome,
// applying spec §4.6's retry policy: non-retryable error kinds fail the
// job immediately, retryable kinds back off exponentially until
// max_attempts is exhausted.
func (q *Queue) handleClaim(ctx context.Context, owner string, handler Handler) bool {
	job, err := q.store.Claim(owner)
	if err != nil {
		logging.QueueError("claim failed for owner %s: %v", owner, err)
		return false
	}
	if job == nil {
		return false
	}

	handlerErr := handler(ctx, *job)
	if handlerErr == nil {
		if err := q.store.Complete(job.ID); err != nil {
			logging.QueueError("complete failed for job %s: %v", job.ID, err)
		} else {
			q.publishQueueStatus()
		}
		return true
	}

	kind := curatorerrors.KindOf(handlerErr)
	exhausted := job.Attempts >= job.MaxAttempts
	onceRetryable := curatorerrors.RetryableOnceKinds[kind] && job.Attempts <= 1
	retryable := (curatorerrors.Retryable(handlerErr) || onceRetryable) && !exhausted && !curatorerrors.NonRetryable[kind]

	nextEligible := time.Now().UTC()
	if retryable {
		nextEligible = nextEligible.Add(q.backoff.delay(job.Attempts))
	}
	if err := q.store.Fail(job.ID, handlerErr.Error(), retryable, nextEligible); err != nil {
		logging.QueueError("persist failure failed for job %s: %v", job.ID, err)
	}
	return true
}

// RunWorkerPool starts the configured number of claim loops; each polls
// for work and blocks on a short ticker between empty claims. It returns
// once ctx is cancelled.
func (q *Queue) RunWorkerPool(ctx context.Context, handler Handler) {
	for i := 0; i < q.poolSize; i++ {
		owner := workerOwnerName(i)
		go q.workerLoop(ctx, owner, handler)
	}
}

func (q *Queue) workerLoop(ctx context.Context, owner string, handler Handler) {
	idleTicker := time.NewTicker(500 * time.Millisecond)
	defer idleTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-idleTicker.C:
			for q.handleClaim(ctx, owner, handler) {
				select {
				case <-ctx.Done():
					return
				default:
				}
			}
		}
	}
}

// RunReaper periodically reclaims jobs stuck in "processing" past the
// visibility timeout (owner crashed mid-job, spec §4.6).
func (q *Queue) RunReaper(ctx context.Context) {
	ticker := time.NewTicker(q.reaperInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-q.visibilityTimeout)
			if _, err := q.store.ReclaimOrphaned(cutoff); err != nil {
				logging.QueueError("reaper sweep failed: %v", err)
			}
		}
	}
}

// RunJanitor periodically deletes completed/cancelled jobs older than the
// retention window.
func (q *Queue) RunJanitor(ctx context.Context) {
	ticker := time.NewTicker(q.janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-q.janitorRetention)
			n, err := q.store.ClearCompleted(cutoff)
			if err != nil {
				logging.QueueError("janitor sweep failed: %v", err)
				continue
			}
			if n > 0 {
				logging.Queue("janitor cleared %d completed job(s)", n)
			}
		}
	}
}

func workerOwnerName(i int) string {
	return fmt.Sprintf("worker-%d", i)
}

// publishQueueStatus emits the current queue depth snapshot (spec §4.6:
// "complete(jobId): ... Emits queue_status"). A stats-read failure just
// skips the emission — it is a diagnostics event, not load-bearing state.
func (q *Queue) publishQueueStatus() {
	if q.bus == nil {
		return
	}
	stats, err := q.store.QueueStats()
	if err != nil {
		logging.QueueError("queue status stats failed: %v", err)
		return
	}
	q.bus.Publish(notify.Event{
		Type: notify.EventQueueStatus,
		Payload: notify.QueueStatus{
			Pending:    stats.Pending,
			Processing: stats.Processing,
			Completed:  stats.Completed,
			Failed:     stats.Failed,
		},
	})
}
