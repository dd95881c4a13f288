// Package api implements the HTTP surface (spec §6): chi-routed REST
// endpoints for import, nodes, search, hierarchy and queue operations, an
// SSE stream over the Notification Bus, health checks and the Prometheus
// scrape endpoint.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nodecurio/curator/internal/hcache"
	"github.com/nodecurio/curator/internal/metrics"
	"github.com/nodecurio/curator/internal/notify"
	"github.com/nodecurio/curator/internal/orchestrator"
	"github.com/nodecurio/curator/internal/queue"
	"github.com/nodecurio/curator/internal/ratelimit"
	"github.com/nodecurio/curator/internal/store"
)

// Server holds every dependency a handler needs. It is deliberately a flat
// struct of already-wired subsystems rather than a framework-style
// container — the same shape internal/enrich.Enricher and
// internal/orchestrator.Orchestrator use.
type Server struct {
	store        *store.Store
	orchestrator *orchestrator.Orchestrator
	queue        *queue.Queue
	hcache       *hcache.Cache
	bus          *notify.Bus
	rateLimit    *ratelimit.Manager
	batches      *batchTracker
	startedAt    time.Time
	version      string
}

// New constructs a Server. hcache and rateLimit may be nil: a nil hcache
// means hierarchy reads go straight to the store, and a nil rateLimit
// means no request is ever throttled — both are valid configurations for
// local development.
func New(s *store.Store, o *orchestrator.Orchestrator, q *queue.Queue, hc *hcache.Cache, bus *notify.Bus, rl *ratelimit.Manager, version string) *Server {
	return &Server{
		store:        s,
		orchestrator: o,
		queue:        q,
		hcache:       hc,
		bus:          bus,
		rateLimit:    rl,
		batches:      newBatchTracker(),
		startedAt:    time.Now(),
		version:      version,
	}
}

// Router builds the full chi.Mux for this server (spec §6's endpoint table).
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.metricsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/health/full", s.handleHealthFull)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(s.rateLimited(ratelimit.ScopeImport)).Post("/import", s.handleImport)
		r.With(s.rateLimited(ratelimit.ScopeImport)).Post("/batch-import", s.handleBatchImport)
		r.Get("/batch-import/{batchId}", s.handleBatchStatus)
		r.Post("/batch-import/{batchId}/cancel", s.handleBatchCancel)

		r.Get("/nodes", s.handleListNodes)
		r.Get("/nodes/{id}", s.handleGetNode)
		r.With(s.rateLimited(ratelimit.ScopeSettings)).Put("/nodes/{id}", s.handleUpdateNode)
		r.With(s.rateLimited(ratelimit.ScopeSettings)).Delete("/nodes/{id}", s.handleDeleteNode)

		r.Get("/search", s.handleSearch)
		r.Get("/search/advanced", s.handleSearchAdvanced)

		r.Get("/hierarchy/{view}", s.handleHierarchyTree)
		r.Get("/hierarchy/subtree/{view}/{path}", s.handleHierarchySubtree)
		r.Get("/hierarchy/path/{view}/{nodeId}", s.handleHierarchyAncestry)
		r.With(s.rateLimited(ratelimit.ScopeSettings)).Post("/hierarchy/invalidate", s.handleHierarchyInvalidate)

		r.Get("/queue/status", s.handleQueueStatus)
		r.Get("/queue/jobs", s.handleQueueJobs)
		r.Get("/queue/jobs/{nodeId}", s.handleQueueJobForNode)
		r.Post("/queue/retry/{jobId}", s.handleQueueRetry)
		r.Delete("/queue/jobs/{jobId}", s.handleQueueCancel)
		r.With(s.rateLimited(ratelimit.ScopeSettings)).Post("/queue/clear", s.handleQueueClear)

		r.Get("/events", s.handleEvents)
	})

	return r
}

// rateLimited is a no-op passthrough when the server has no rate limiter
// configured, so local dev and most unit tests don't need to wire one up.
func (s *Server) rateLimited(scope ratelimit.Scope) func(http.Handler) http.Handler {
	if s.rateLimit == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.rateLimit.Middleware(scope, func(w http.ResponseWriter, err error) {
		metrics.RateLimitRejectionsTotal.WithLabelValues(string(scope)).Inc()
		writeError(w, err)
	})
}

// metricsMiddleware records curator_api_requests_total and
// curator_api_request_duration_seconds for every request, labeled by the
// matched chi route pattern rather than the raw path so path parameters
// don't explode the cardinality.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		timer.ObserveDurationVec(metrics.APIRequestDuration, route)
		metrics.APIRequestsTotal.WithLabelValues(route, http.StatusText(ww.Status())).Inc()
	})
}
