// Package ratelimit implements the three token-bucket rate limiters spec
// §5 names — global, import, settings — each scoped per client identifier
// (IP or authenticated subject), the way cuemby-warren's ingress middleware
// keys a golang.org/x/time/rate.Limiter map by client IP.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/nodecurio/curator/internal/config"
	curatorerrors "github.com/nodecurio/curator/internal/errors"
)

// Scope names the three buckets spec §5 lists.
type Scope string

const (
	ScopeGlobal   Scope = "global"
	ScopeImport   Scope = "import"
	ScopeSettings Scope = "settings"
)

// Limiter is a per-client-identifier token bucket pool for one scope.
// Limiters are created lazily on first use and never evicted — bounded by
// the number of distinct clients seen, which is acceptable for the
// embedded single-node deployment this service targets.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	rps      float64
	burst    int
}

func newLimiter(rps float64, burst int) *Limiter {
	return &Limiter{buckets: make(map[string]*rate.Limiter), rps: rps, burst: burst}
}

// Allow reports whether clientID may proceed under this scope's bucket,
// creating the bucket on first sight.
func (l *Limiter) Allow(clientID string) bool {
	l.mu.Lock()
	b, ok := l.buckets[clientID]
	if !ok {
		b = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.buckets[clientID] = b
	}
	l.mu.Unlock()
	return b.Allow()
}

// Manager owns the three named limiters configured from config.RateLimitConfig.
type Manager struct {
	global   *Limiter
	importL  *Limiter
	settings *Limiter
}

// New constructs a Manager from configuration (spec §5: "global, import,
// settings").
func New(cfg config.RateLimitConfig) *Manager {
	return &Manager{
		global:   newLimiter(cfg.GlobalRPS, cfg.GlobalBurst),
		importL:  newLimiter(cfg.ImportRPS, cfg.ImportBurst),
		settings: newLimiter(cfg.SettingsRPS, cfg.SettingsBurst),
	}
}

func (m *Manager) limiterFor(scope Scope) *Limiter {
	switch scope {
	case ScopeImport:
		return m.importL
	case ScopeSettings:
		return m.settings
	default:
		return m.global
	}
}

// Allow checks scope's bucket for clientID, always also consuming from the
// global bucket — every request counts against both its specific scope and
// the overall ceiling.
func (m *Manager) Allow(scope Scope, clientID string) bool {
	if !m.global.Allow(clientID) {
		return false
	}
	if scope == ScopeGlobal {
		return true
	}
	return m.limiterFor(scope).Allow(clientID)
}

// Middleware wraps next with scope's rate limit, keyed by ClientID(r).
// Rejected requests get a *curatorerrors.Error-shaped RATE_LIMIT_EXCEEDED
// response via errWriter, the same error-to-HTTP mapping internal/api uses
// for every other handler error.
func (m *Manager) Middleware(scope Scope, errWriter func(w http.ResponseWriter, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.Allow(scope, ClientID(r)) {
				errWriter(w, curatorerrors.Newf(curatorerrors.KindRateLimitExceeded, "rate limit exceeded for %s", scope))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientID identifies the caller for rate-limit bucketing: the
// authenticated subject if present, otherwise the client IP (spec §5:
// "scoped per client identifier (IP or authenticated subject)").
func ClientID(r *http.Request) string {
	if subject := r.Header.Get("X-Curator-Subject"); subject != "" {
		return subject
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
