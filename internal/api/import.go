package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nodecurio/curator/internal/metrics"
	"github.com/nodecurio/curator/internal/orchestrator"
)

type importRequest struct {
	URL            string `json:"url" validate:"required"`
	ForceRefresh   bool   `json:"forceRefresh"`
	CreateQueueJob *bool  `json:"createQueueJob"`
}

func (req importRequest) options() orchestrator.Options {
	opts := orchestrator.DefaultOptions()
	opts.ForceRefresh = req.ForceRefresh
	if req.CreateQueueJob != nil {
		opts.CreateQueueJob = *req.CreateQueueJob
	}
	return opts
}

// handleImport runs a single URL through the Import Orchestrator (spec
// §6: POST /api/import).
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badRequest("invalid JSON body"))
		return
	}
	if err := validateBody(req); err != nil {
		writeError(w, err)
		return
	}

	timer := metrics.NewTimer()
	result, err := s.orchestrator.Import(r.Context(), req.URL, req.options())
	timer.ObserveDuration(metrics.ImportDuration)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("failed").Inc()
		writeError(w, err)
		return
	}

	outcome := "created"
	if result.Cached {
		outcome = "cached"
	}
	metrics.ImportsTotal.WithLabelValues(outcome).Inc()

	status := http.StatusCreated
	if result.Cached {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// batchImportRequest caps at 50 URLs (spec §6: "POST /api/batch-import,
// max 50 URLs").
// batchImportRequest's "max=50" tag must track maxBatchSize below.
type batchImportRequest struct {
	URLs           []string `json:"urls" validate:"required,min=1,max=50,dive,required"`
	ForceRefresh   bool     `json:"forceRefresh"`
	CreateQueueJob *bool    `json:"createQueueJob"`
}

const maxBatchSize = 50

// handleBatchImport accepts up to 50 URLs, starts one background goroutine
// that runs them through the Import Orchestrator one after another, and
// returns a batch ID the caller polls via GET /api/batch-import/:batchId
// (spec §6).
func (s *Server) handleBatchImport(w http.ResponseWriter, r *http.Request) {
	var req batchImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badRequest("invalid JSON body"))
		return
	}
	if err := validateBody(req); err != nil {
		writeError(w, err)
		return
	}

	opts := importRequest{ForceRefresh: req.ForceRefresh, CreateQueueJob: req.CreateQueueJob}.options()
	b := s.batches.start(req.URLs)

	go s.runBatch(b.ID, req.URLs, opts)

	writeJSON(w, http.StatusAccepted, b.snapshot())
}

func (s *Server) runBatch(batchID string, urls []string, opts orchestrator.Options) {
	// Give each import its own bounded context rather than the request's
	// (already-cancelled-by-the-time-this-runs) context.
	for _, u := range urls {
		if b, ok := s.batches.get(batchID); ok && b.isCancelled() {
			return
		}
		ctx, cancel := contextWithTimeout(30 * time.Second)
		result, err := s.orchestrator.Import(ctx, u, opts)
		cancel()
		s.batches.record(batchID, u, result, err)
	}
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	batchID := chiParam(r, "batchId")
	b, ok := s.batches.get(batchID)
	if !ok {
		writeError(w, notFound("batch " + batchID + " not found"))
		return
	}
	writeJSON(w, http.StatusOK, b.snapshot())
}

func (s *Server) handleBatchCancel(w http.ResponseWriter, r *http.Request) {
	batchID := chiParam(r, "batchId")
	if ok := s.batches.cancel(batchID); !ok {
		writeError(w, notFound("batch " + batchID + " not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}
