package api

import (
	"net/http"
	"time"

	"github.com/nodecurio/curator/internal/store"
)

// handleQueueStatus serves GET /api/queue/status: counts per job status
// (spec §4.6/§6).
func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.queue.Stats()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleQueueJobs serves GET /api/queue/jobs?status=&limit=.
func (s *Server) handleQueueJobs(w http.ResponseWriter, r *http.Request) {
	status := store.JobStatus(r.URL.Query().Get("status"))
	limit := intQueryParam(r, "limit", 100)

	jobs, err := s.queue.ListJobs(status, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// handleQueueJobForNode serves GET /api/queue/jobs/:nodeId.
func (s *Server) handleQueueJobForNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chiParam(r, "nodeId")
	jobs, err := s.queue.GetJobsForNode(nodeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// handleQueueRetry serves POST /api/queue/retry/:jobId.
func (s *Server) handleQueueRetry(w http.ResponseWriter, r *http.Request) {
	jobID := chiParam(r, "jobId")
	if err := s.queue.Retry(jobID); err != nil {
		writeError(w, err)
		return
	}
	job, err := s.queue.GetJob(jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleQueueCancel serves DELETE /api/queue/jobs/:jobId.
func (s *Server) handleQueueCancel(w http.ResponseWriter, r *http.Request) {
	jobID := chiParam(r, "jobId")
	if err := s.queue.Cancel(jobID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// handleQueueClear serves POST /api/queue/clear, an operator escape hatch
// that runs the same sweep the janitor does on its own schedule (spec
// §4.6) but on demand, clearing everything completed/cancelled so far.
func (s *Server) handleQueueClear(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.ClearCompleted(time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}
