package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nodecurio/curator/internal/config"
	curatorerrors "github.com/nodecurio/curator/internal/errors"
	"github.com/nodecurio/curator/internal/notify"
	"github.com/nodecurio/curator/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestQueue(t *testing.T) (*Queue, *store.Store) {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	q := New(s, config.QueueConfig{WorkerPoolSize: 2, DefaultMaxAttempts: 3, BackoffBase: "10ms", BackoffCeiling: "100ms", VisibilityTimeout: "1m"}, nil)
	return q, s
}

func seedNode(t *testing.T, s *store.Store) *store.Node {
	t.Helper()
	n, err := s.Create(store.NodeDraft{Title: "x", URL: "https://example.com/x", FunctionHierarchyCode: "A.LLM.T.1", OrganizationHierarchyCode: "OAIA.LLM.T.1"})
	require.NoError(t, err)
	return n
}

func TestEnqueueAndClaim(t *testing.T) {
	q, s := openTestQueue(t)
	n := seedNode(t, s)

	job, err := q.Enqueue(n.ID, store.PhaseEnrichment)
	require.NoError(t, err)
	assert.Equal(t, store.JobPending, job.Status)

	claimed, err := s.Claim("worker-0")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, store.JobProcessing, claimed.Status)
	assert.Equal(t, 1, claimed.Attempts)
}

func TestEnqueueIsIdempotentForLiveJob(t *testing.T) {
	q, s := openTestQueue(t)
	n := seedNode(t, s)

	first, err := q.Enqueue(n.ID, store.PhaseEnrichment)
	require.NoError(t, err)

	second, err := q.Enqueue(n.ID, store.PhaseEnrichment)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestEnqueueReplacesCompletedJob(t *testing.T) {
	q, s := openTestQueue(t)
	n := seedNode(t, s)

	first, err := q.Enqueue(n.ID, store.PhaseEnrichment)
	require.NoError(t, err)
	require.NoError(t, s.Complete(first.ID))

	second, err := q.Enqueue(n.ID, store.PhaseEnrichment)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, store.JobPending, second.Status)
}

func TestHandleClaim_SuccessCompletesJob(t *testing.T) {
	q, s := openTestQueue(t)
	n := seedNode(t, s)
	job, err := q.Enqueue(n.ID, store.PhaseEnrichment)
	require.NoError(t, err)

	ok := q.handleClaim(context.Background(), "worker-0", func(ctx context.Context, j store.Job) error {
		assert.Equal(t, job.ID, j.ID)
		return nil
	})
	assert.True(t, ok)

	got, err := s.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.JobCompleted, got.Status)
}

func TestHandleClaim_RetryableFailureReschedules(t *testing.T) {
	q, s := openTestQueue(t)
	n := seedNode(t, s)
	job, err := q.Enqueue(n.ID, store.PhaseEnrichment)
	require.NoError(t, err)
	_ = job

	ok := q.handleClaim(context.Background(), "worker-0", func(ctx context.Context, j store.Job) error {
		return curatorerrors.New(curatorerrors.KindLLMRateLimited, "rate limited")
	})
	assert.True(t, ok)

	got, err := s.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.JobPending, got.Status)
	assert.True(t, got.NextEligibleAt.After(time.Now().UTC().Add(-time.Second)))
}

func TestHandleClaim_NonRetryableFailsImmediately(t *testing.T) {
	q, s := openTestQueue(t)
	n := seedNode(t, s)
	job, err := q.Enqueue(n.ID, store.PhaseEnrichment)
	require.NoError(t, err)

	ok := q.handleClaim(context.Background(), "worker-0", func(ctx context.Context, j store.Job) error {
		return curatorerrors.New(curatorerrors.KindLLMNotInitialized, "no api key")
	})
	assert.True(t, ok)

	got, err := s.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.JobFailed, got.Status)
}

func TestHandleClaim_ExhaustedAttemptsFailsEvenIfRetryable(t *testing.T) {
	q, s := openTestQueue(t)
	n := seedNode(t, s)
	job, err := s.Enqueue(n.ID, store.PhaseEnrichment, 0, 1)
	require.NoError(t, err)
	_ = job

	ok := q.handleClaim(context.Background(), "worker-0", func(ctx context.Context, j store.Job) error {
		return curatorerrors.New(curatorerrors.KindLLMRateLimited, "rate limited")
	})
	assert.True(t, ok)

	got, err := s.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.JobFailed, got.Status)
}

func TestHandleClaim_NoEligibleJobReturnsFalse(t *testing.T) {
	q, _ := openTestQueue(t)
	ok := q.handleClaim(context.Background(), "worker-0", func(ctx context.Context, j store.Job) error {
		return errors.New("should not be called")
	})
	assert.False(t, ok)
}

func TestHandleClaim_SuccessPublishesQueueStatus(t *testing.T) {
	s, err := store.Open(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	bus := notify.New()
	q := New(s, config.QueueConfig{WorkerPoolSize: 2, DefaultMaxAttempts: 3, BackoffBase: "10ms", BackoffCeiling: "100ms", VisibilityTimeout: "1m"}, bus)
	n := seedNode(t, s)
	_, err = q.Enqueue(n.ID, store.PhaseEnrichment)
	require.NoError(t, err)

	var got notify.QueueStatus
	received := false
	bus.SubscribeType(notify.EventQueueStatus, func(e notify.Event) {
		received = true
		got = e.Payload.(notify.QueueStatus)
	})

	ok := q.handleClaim(context.Background(), "worker-0", func(ctx context.Context, j store.Job) error { return nil })
	assert.True(t, ok)
	assert.True(t, received)
	assert.Equal(t, 1, got.Completed)
}

func TestReclaimOrphaned(t *testing.T) {
	q, s := openTestQueue(t)
	n := seedNode(t, s)
	job, err := q.Enqueue(n.ID, store.PhaseEnrichment)
	require.NoError(t, err)
	_, err = s.Claim("worker-0")
	require.NoError(t, err)

	n2, err := s.ReclaimOrphaned(time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n2)

	got, err := s.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.JobPending, got.Status)
}
