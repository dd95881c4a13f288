package extract

import (
	"sort"
	"sync"

	"github.com/nodecurio/curator/internal/logging"
)

// Registry selects the highest-priority Extractor whose CanHandle is true
// for a given URL, falling back to a generic HTML extractor (spec §4.2:
// "The registry is deterministic: same URL always yields the same
// extractor version.").
type Registry struct {
	mu         sync.RWMutex
	extractors []Extractor
	generic    Extractor
}

// NewRegistry constructs a Registry pre-loaded with the built-in
// extractors, sorted highest-priority first so Select is deterministic.
func NewRegistry() *Registry {
	r := &Registry{generic: newGenericHTMLExtractor()}
	r.Register(newGitHubExtractor())
	r.Register(newYouTubeExtractor())
	return r
}

// Register adds an extractor, keeping the list sorted by descending
// priority (ties broken by name for determinism).
func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors = append(r.extractors, e)
	sort.SliceStable(r.extractors, func(i, j int) bool {
		if r.extractors[i].Priority() != r.extractors[j].Priority() {
			return r.extractors[i].Priority() > r.extractors[j].Priority()
		}
		return r.extractors[i].Name() < r.extractors[j].Name()
	})
	logging.Extract("registered extractor %s v%s priority=%d", e.Name(), e.Version(), e.Priority())
}

// Select returns the extractor that will handle canonicalURL: the
// highest-priority extractor whose CanHandle is true, or the generic HTML
// extractor if none applies.
func (r *Registry) Select(canonicalURL string) Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.extractors {
		if e.CanHandle(canonicalURL) {
			return e
		}
	}
	return r.generic
}
