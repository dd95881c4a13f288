package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	curatorerrors "github.com/nodecurio/curator/internal/errors"
	"github.com/nodecurio/curator/internal/logging"
)

const jobColumns = `id, node_id, phase, status, priority, attempts, max_attempts, error_message, owner, next_eligible_at, claimed_at, created_at, processed_at`

// Enqueue upserts a pending job for nodeID/phase: at most one live
// (pending or processing) job may exist per (node_id, phase) — the
// partial unique index idx_queue_live_job enforces this at the storage
// layer — but the caller-facing contract (spec §4.6) is idempotent, not
// error-returning. If a live job already exists, its id is returned
// unchanged; otherwise a fresh job is inserted, replacing whatever
// completed/failed row previously occupied that (node_id, phase) pair.
func (s *Store) Enqueue(nodeID, phase string, priority, maxAttempts int) (*Job, error) {
	var result *Job
	err := s.withTx(func(tx *sql.Tx) error {
		row := tx.QueryRow(`SELECT id FROM processing_queue WHERE node_id = ? AND phase = ? AND status IN ('pending', 'processing')`, nodeID, phase)
		var existingID string
		switch err := row.Scan(&existingID); err {
		case nil:
			j, err := scanJob(tx.QueryRow(fmt.Sprintf(`SELECT %s FROM processing_queue WHERE id = ?`, jobColumns), existingID))
			if err != nil {
				return mapSQLiteErr(err)
			}
			result = j
			return nil
		case sql.ErrNoRows:
			// fall through to insert
		default:
			return mapSQLiteErr(err)
		}

		if _, err := tx.Exec(`DELETE FROM processing_queue WHERE node_id = ? AND phase = ? AND status IN ('completed', 'failed', 'cancelled')`, nodeID, phase); err != nil {
			return mapSQLiteErr(err)
		}

		id := uuid.NewString()
		now := time.Now().UTC()
		if _, err := tx.Exec(`
INSERT INTO processing_queue (id, node_id, phase, status, priority, attempts, max_attempts, next_eligible_at, created_at)
VALUES (?, ?, ?, 'pending', ?, 0, ?, ?, ?)`,
			id, nodeID, phase, priority, maxAttempts, now, now); err != nil {
			return mapSQLiteErr(err)
		}
		j, err := scanJob(tx.QueryRow(fmt.Sprintf(`SELECT %s FROM processing_queue WHERE id = ?`, jobColumns), id))
		if err != nil {
			return mapSQLiteErr(err)
		}
		result = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.Queue("enqueued job %s for node %s phase %s", result.ID, nodeID, phase)
	return result, nil
}

// Claim atomically takes the highest-priority, oldest eligible pending job
// for owner, marking it processing. Returns (nil, nil) when the queue has
// nothing eligible right now — callers poll rather than treating this as
// an error.
func (s *Store) Claim(owner string) (*Job, error) {
	var job *Job
	err := s.withTx(func(tx *sql.Tx) error {
		row := tx.QueryRow(`
SELECT id FROM processing_queue
WHERE status = 'pending' AND next_eligible_at <= ?
ORDER BY priority DESC, created_at ASC
LIMIT 1`, time.Now().UTC())

		var id string
		if err := row.Scan(&id); err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return mapSQLiteErr(err)
		}

		now := time.Now().UTC()
		res, err := tx.Exec(`
UPDATE processing_queue
SET status = 'processing', owner = ?, claimed_at = ?, attempts = attempts + 1
WHERE id = ? AND status = 'pending'`, owner, now, id)
		if err != nil {
			return mapSQLiteErr(err)
		}
		affected, _ := res.RowsAffected()
		if affected == 0 {
			// Lost a race with another claimant between the SELECT and the
			// UPDATE; the caller just retries on its next poll.
			return nil
		}

		j, err := scanJob(tx.QueryRow(fmt.Sprintf(`SELECT %s FROM processing_queue WHERE id = ?`, jobColumns), id))
		if err != nil {
			return err
		}
		job = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	if job != nil {
		logging.QueueDebug("claimed job %s (node=%s phase=%s owner=%s attempt=%d)", job.ID, job.NodeID, job.Phase, owner, job.Attempts)
	}
	return job, nil
}

// Complete marks a processing job done.
func (s *Store) Complete(jobID string) error {
	now := time.Now().UTC()
	res, err := s.db.Exec(`UPDATE processing_queue SET status = 'completed', processed_at = ? WHERE id = ? AND status = 'processing'`, now, jobID)
	if err != nil {
		return mapSQLiteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return curatorerrors.New(curatorerrors.KindResourceNotFound, fmt.Sprintf("job %s not in processing state", jobID))
	}
	logging.Queue("completed job %s", jobID)
	return nil
}

// Fail marks a processing job failed-and-eligible-for-retry at
// nextEligibleAt, or permanently failed if attempts have exhausted
// maxAttempts (the caller computes nextEligibleAt via the backoff policy
// and decides retryability; this method only persists the outcome).
func (s *Store) Fail(jobID, errMessage string, retryable bool, nextEligibleAt time.Time) error {
	var status JobStatus = JobFailed
	var query string
	var args []any
	if retryable {
		status = JobPending
		query = `UPDATE processing_queue SET status = ?, error_message = ?, next_eligible_at = ?, owner = NULL, claimed_at = NULL WHERE id = ? AND status = 'processing'`
		args = []any{string(status), errMessage, nextEligibleAt, jobID}
	} else {
		now := time.Now().UTC()
		query = `UPDATE processing_queue SET status = 'failed', error_message = ?, processed_at = ? WHERE id = ? AND status = 'processing'`
		args = []any{errMessage, now, jobID}
	}
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return mapSQLiteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return curatorerrors.New(curatorerrors.KindResourceNotFound, fmt.Sprintf("job %s not in processing state", jobID))
	}
	logging.QueueWarn("job %s failed (retryable=%v): %s", jobID, retryable, errMessage)
	return nil
}

// Cancel removes a pending or processing job from the live set without
// recording a failure.
func (s *Store) Cancel(jobID string) error {
	now := time.Now().UTC()
	res, err := s.db.Exec(`UPDATE processing_queue SET status = 'cancelled', processed_at = ? WHERE id = ? AND status IN ('pending', 'processing')`, now, jobID)
	if err != nil {
		return mapSQLiteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return curatorerrors.New(curatorerrors.KindResourceNotFound, fmt.Sprintf("job %s not pending or processing", jobID))
	}
	logging.Queue("cancelled job %s", jobID)
	return nil
}

// Retry resets a failed job back to pending, for manual re-queue from an
// operator endpoint.
func (s *Store) Retry(jobID string) error {
	res, err := s.db.Exec(`
UPDATE processing_queue
SET status = 'pending', attempts = 0, error_message = NULL, next_eligible_at = ?, owner = NULL, claimed_at = NULL, processed_at = NULL
WHERE id = ? AND status = 'failed'`, time.Now().UTC(), jobID)
	if err != nil {
		return mapSQLiteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return curatorerrors.New(curatorerrors.KindResourceNotFound, fmt.Sprintf("job %s not failed", jobID))
	}
	logging.Queue("retried job %s", jobID)
	return nil
}

// ReclaimOrphaned resets any job stuck in 'processing' past visibleBefore
// back to pending, for the reaper sweep (spec §4.6: owner crashed before
// completing/failing the job).
func (s *Store) ReclaimOrphaned(visibleBefore time.Time) (int, error) {
	res, err := s.db.Exec(`
UPDATE processing_queue
SET status = 'pending', owner = NULL, claimed_at = NULL
WHERE status = 'processing' AND claimed_at < ?`, visibleBefore)
	if err != nil {
		return 0, mapSQLiteErr(err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logging.QueueWarn("reaper reclaimed %d orphaned job(s)", n)
	}
	return int(n), nil
}

// GetJob fetches one job by ID.
func (s *Store) GetJob(id string) (*Job, error) {
	row := s.db.QueryRow(fmt.Sprintf(`SELECT %s FROM processing_queue WHERE id = ?`, jobColumns), id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, curatorerrors.New(curatorerrors.KindResourceNotFound, fmt.Sprintf("job %s not found", id))
	}
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return j, nil
}

// GetJobsForNode lists every job (any status) queued for a node.
func (s *Store) GetJobsForNode(nodeID string) ([]Job, error) {
	rows, err := s.db.Query(fmt.Sprintf(`SELECT %s FROM processing_queue WHERE node_id = ? ORDER BY created_at DESC`, jobColumns), nodeID)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// ListJobs lists jobs by status, newest first, capped at limit.
func (s *Store) ListJobs(status JobStatus, limit int) ([]Job, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = s.db.Query(fmt.Sprintf(`SELECT %s FROM processing_queue ORDER BY created_at DESC LIMIT ?`, jobColumns), limit)
	} else {
		rows, err = s.db.Query(fmt.Sprintf(`SELECT %s FROM processing_queue WHERE status = ? ORDER BY created_at DESC LIMIT ?`, jobColumns), string(status), limit)
	}
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// ClearCompleted deletes completed/cancelled jobs older than olderThan, the
// janitor sweep's primitive.
func (s *Store) ClearCompleted(olderThan time.Time) (int, error) {
	res, err := s.db.Exec(`DELETE FROM processing_queue WHERE status IN ('completed', 'cancelled') AND processed_at < ?`, olderThan)
	if err != nil {
		return 0, mapSQLiteErr(err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// QueueStats returns a count of jobs per status.
func (s *Store) QueueStats() (*JobStats, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM processing_queue GROUP BY status`)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	stats := &JobStats{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, mapSQLiteErr(err)
		}
		switch JobStatus(status) {
		case JobPending:
			stats.Pending = count
		case JobProcessing:
			stats.Processing = count
		case JobCompleted:
			stats.Completed = count
		case JobFailed:
			stats.Failed = count
		case JobCancelled:
			stats.Cancelled = count
		}
	}
	return stats, nil
}

func scanJob(row rowScanner) (*Job, error) {
	var j Job
	var status string
	var errMsg sql.NullString
	var owner sql.NullString
	var claimedAt sql.NullTime
	var processedAt sql.NullTime

	err := row.Scan(&j.ID, &j.NodeID, &j.Phase, &status, &j.Priority, &j.Attempts, &j.MaxAttempts,
		&errMsg, &owner, &j.NextEligibleAt, &claimedAt, &j.CreatedAt, &processedAt)
	if err != nil {
		return nil, err
	}
	j.Status = JobStatus(status)
	j.ErrorMessage = errMsg.String
	j.Owner = owner.String
	if claimedAt.Valid {
		j.ClaimedAt = &claimedAt.Time
	}
	if processedAt.Valid {
		j.ProcessedAt = &processedAt.Time
	}
	return &j, nil
}

func scanJobs(rows *sql.Rows) ([]Job, error) {
	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, mapSQLiteErr(err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, nil
}
