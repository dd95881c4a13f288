package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nodecurio/curator/internal/logging"
	"github.com/nodecurio/curator/internal/notify"
)

// eventBacklog bounds how many undelivered events an SSE client can fall
// behind by before it's dropped — the Notification Bus delivers
// synchronously on the publisher's goroutine (internal/notify.Bus.Publish),
// so a subscriber channel must never block that goroutine for long.
const eventBacklog = 64

// handleEvents serves GET /api/events: a text/event-stream of every
// enrichment-complete and queue-status event published on the
// Notification Bus (spec §4.10/§6), for as long as the client stays
// connected.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, badRequest("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := make(chan notify.Event, eventBacklog)
	id := s.bus.Subscribe(func(e notify.Event) {
		select {
		case ch <- e:
		default:
			logging.APIError("sse: subscriber channel full, dropping %s event", e.Type)
		}
	})
	defer s.bus.Unsubscribe(id)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-ch:
			payload, err := json.Marshal(e.Payload)
			if err != nil {
				logging.APIError("sse: marshal event payload failed: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
