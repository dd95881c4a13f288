package api

import (
	"net/http"
	"sync"
	"time"
)

type healthBody struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// handleHealth serves GET /health: a liveness check with no dependency
// checks, safe to call at high frequency from a load balancer.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{
		Status:  "ok",
		Version: s.version,
		Uptime:  time.Since(s.startedAt).String(),
	})
}

type fullHealthBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

var (
	fullHealthMu     sync.Mutex
	fullHealthCached *fullHealthBody
	fullHealthAt     time.Time
)

const fullHealthTTL = 30 * time.Second

// handleHealthFull serves GET /health/full: a readiness check that pings
// the store and queue, cached for 30 seconds so a noisy monitor can't turn
// dependency checks into their own load problem (spec §6).
func (s *Server) handleHealthFull(w http.ResponseWriter, r *http.Request) {
	fullHealthMu.Lock()
	if fullHealthCached != nil && time.Since(fullHealthAt) < fullHealthTTL {
		cached := *fullHealthCached
		fullHealthMu.Unlock()
		writeJSON(w, statusFor(cached.Status), cached)
		return
	}
	fullHealthMu.Unlock()

	checks := map[string]string{}
	status := "ok"

	if _, err := s.store.QueueStats(); err != nil {
		checks["store"] = err.Error()
		status = "degraded"
	} else {
		checks["store"] = "ok"
	}

	if _, err := s.queue.Stats(); err != nil {
		checks["queue"] = err.Error()
		status = "degraded"
	} else {
		checks["queue"] = "ok"
	}

	body := &fullHealthBody{Status: status, Checks: checks}

	fullHealthMu.Lock()
	fullHealthCached = body
	fullHealthAt = time.Now()
	fullHealthMu.Unlock()

	writeJSON(w, statusFor(status), *body)
}

func statusFor(status string) int {
	if status == "ok" {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}
